package gokafka

import "fmt"

// request is the full wire frame for an outbound call: the `i32 size`
// prefix (via pushEncoder lengthField), the request header (api key,
// api version, correlation id, client id, and — for flexible headers —
// a trailing empty tagged-field array), and the protocolBody payload.
type request struct {
	correlationID int32
	clientID      string
	body          protocolBody
}

func (r *request) encode(pe packetEncoder) error {
	pe.push(&lengthField{})
	pe.putInt16(r.body.key())
	pe.putInt16(r.body.version())
	pe.putInt32(r.correlationID)

	if r.body.headerVersion() >= 1 {
		if err := pe.putString(r.clientID); err != nil {
			return err
		}
	}

	if r.body.headerVersion() >= 2 {
		pe.putEmptyTaggedFieldArray()
	}

	if err := r.body.encode(pe); err != nil {
		return err
	}

	return pe.pop()
}

func (r *request) decode(pd packetDecoder) (err error) {
	var key int16
	if key, err = pd.getInt16(); err != nil {
		return err
	}
	var version int16
	if version, err = pd.getInt16(); err != nil {
		return err
	}
	if r.correlationID, err = pd.getInt32(); err != nil {
		return err
	}
	r.clientID, err = pd.getString()
	if err != nil {
		return err
	}

	r.body = allocateBody(key, version)
	if r.body == nil {
		return PacketDecodingError{fmt.Sprintf("unknown request key (%d)", key)}
	}
	if r.body.headerVersion() >= 2 {
		if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
			return err
		}
	}
	return r.body.decode(pd, version)
}

// responseHeader is the frame every inbound response starts with: a
// correlation id, and — for the flexible-header responses introduced by
// KIP-482 — a trailing empty tagged-field array.
type responseHeader struct {
	length        int32
	correlationID int32
}

func (r *responseHeader) decode(pd packetDecoder, headerVersion int16) (err error) {
	r.length, err = pd.getInt32()
	if err != nil {
		return err
	}
	if r.length <= 4 || r.length > MaxResponseSize {
		return PacketDecodingError{fmt.Sprintf("message of length %d too large or too small", r.length)}
	}

	r.correlationID, err = pd.getInt32()
	if err != nil {
		return err
	}
	if headerVersion >= 1 {
		if _, err = pd.getEmptyTaggedFieldArray(); err != nil {
			return err
		}
	}
	return nil
}
