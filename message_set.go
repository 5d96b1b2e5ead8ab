package gokafka

// MessageBlock is one entry of a legacy MessageSet: the offset the broker
// assigned (or, for a producer-built set, a relative offset the broker
// will renumber on append) plus the Message itself.
type MessageBlock struct {
	Offset int64
	Msg    *Message
}

// Messages flattens a (possibly compressed, possibly nested) MessageBlock
// into its constituent leaf messages, mirroring the
// partitionFetcher.decodeLegacySet helper which calls msgBlock.Messages().
func (msb *MessageBlock) Messages() []*MessageBlock {
	if msb.Msg.Set == nil {
		return []*MessageBlock{msb}
	}
	return msb.Msg.Set.Messages
}

func (msb *MessageBlock) encode(pe packetEncoder) error {
	pe.putInt64(msb.Offset)
	pe.push(&lengthField{})
	err := msb.Msg.encode(pe)
	if err != nil {
		return err
	}
	return pe.pop()
}

func (msb *MessageBlock) decode(pd packetDecoder) (err error) {
	msb.Offset, err = pd.getInt64()
	if err != nil {
		return err
	}

	err = pd.push(&lengthField{})
	if err != nil {
		// a partial trailing message at the end of a fetch response is
		// expected and handled by the caller (isPartial), not an error here.
		return err
	}

	msb.Msg = new(Message)
	err = msb.Msg.decode(pd)
	if err != nil {
		return err
	}

	return pd.pop()
}

// MessageSet is the legacy (pre-KIP-98) record container: a flat sequence
// of length-prefixed MessageBlocks, each independently CRC-32-protected
// (legacy CRC-32, not the v2 format's CRC-32C — see record_batch.go).
type MessageSet struct {
	PartialTrailingMessage bool // whether the set on the wire ended in a partial message
	OverflowMessage        bool // whether the set on the wire contained an overflow message
	Messages               []*MessageBlock
}

func (ms *MessageSet) encode(pe packetEncoder) error {
	for i := range ms.Messages {
		err := ms.Messages[i].encode(pe)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ms *MessageSet) decode(pd packetDecoder) (err error) {
	ms.Messages = nil

	for pd.remaining() > 0 {
		magic, err := magicValue(pd)
		if err != nil {
			if err == ErrInsufficientData {
				ms.PartialTrailingMessage = true
				return nil
			}
			return err
		}
		_ = magic

		msb := new(MessageBlock)
		err = msb.decode(pd)
		switch err {
		case nil:
			ms.Messages = append(ms.Messages, msb)
		case ErrInsufficientData:
			// trailing partial message, this is expected to happen during
			// a fetch response: a broker fills MaxBytes but may cut a
			// record batch in half.
			ms.PartialTrailingMessage = true
			return nil
		default:
			return err
		}
	}

	return nil
}

// magicValue peeks at a prospective message's magic byte (offset 16: 8
// bytes offset + 4 bytes length + 4 bytes CRC in a legacy message, or
// partition leader epoch in a v2 record batch) without consuming it, so
// the caller can short-circuit on an unsupported future format before
// attempting a full decode.
func magicValue(pd packetDecoder) (int8, error) {
	return pd.peekInt8(16)
}

func (ms *MessageSet) addMessage(msg *Message) {
	block := new(MessageBlock)
	block.Msg = msg
	ms.Messages = append(ms.Messages, block)
}
