package gokafka

import "fmt"

type recordsType int8

const (
	unknownRecords recordsType = iota
	legacyRecords
	defaultRecords
)

// Records is the union of the two wire formats a Produce/Fetch payload may
// carry: a legacy MessageSet (magic 0/1) or a v2 RecordBatch (magic 2). The
// recordsType discriminant lets callers — notably the consumer's fetch-loop
// parseResponse — branch without a type switch on every read.
type Records struct {
	recordsType recordsType
	MsgSet      *MessageSet
	RecordBatch *RecordBatch
}

func newLegacyRecords(msgSet *MessageSet) Records {
	return Records{recordsType: legacyRecords, MsgSet: msgSet}
}

func newDefaultRecords(batch *RecordBatch) Records {
	return Records{recordsType: defaultRecords, RecordBatch: batch}
}

func (r *Records) setTypeFromFields() error {
	if r.MsgSet != nil && r.RecordBatch != nil {
		return fmt.Errorf("both MsgSet and RecordBatch set, but only one expected")
	}
	r.recordsType = unknownRecords
	switch {
	case r.MsgSet != nil:
		r.recordsType = legacyRecords
	case r.RecordBatch != nil:
		r.recordsType = defaultRecords
	}
	return nil
}

func (r *Records) encode(pe packetEncoder) error {
	switch r.recordsType {
	case legacyRecords:
		if r.MsgSet == nil {
			return nil
		}
		return r.MsgSet.encode(pe)
	case defaultRecords:
		if r.RecordBatch == nil {
			return nil
		}
		return r.RecordBatch.encode(pe)
	}
	return fmt.Errorf("unknown records type: %v", r.recordsType)
}

func (r *Records) setTypeFromMagic(pd packetDecoder) error {
	magic, err := magicValue(pd)
	if err != nil {
		return err
	}

	r.recordsType = legacyRecords
	if magic == 2 {
		r.recordsType = defaultRecords
	}
	return nil
}

func (r *Records) decode(pd packetDecoder) error {
	if r.recordsType == unknownRecords {
		if err := r.setTypeFromMagic(pd); err != nil {
			return err
		}
	}

	switch r.recordsType {
	case legacyRecords:
		r.MsgSet = &MessageSet{}
		return r.MsgSet.decode(pd)
	case defaultRecords:
		r.RecordBatch = &RecordBatch{}
		return r.RecordBatch.decode(pd)
	}
	return fmt.Errorf("unknown records type: %v", r.recordsType)
}

// numRecords reports the number of leaf messages/records this wrapper
// holds, used by the fetch loop to size its consumer-message buffer and to
// detect a response carrying no progress (parseResponse's nRecs == 0 path).
func (r *Records) numRecords() (int, error) {
	switch r.recordsType {
	case legacyRecords:
		if r.MsgSet == nil {
			return 0, nil
		}
		return len(r.MsgSet.Messages), nil
	case defaultRecords:
		if r.RecordBatch == nil {
			return 0, nil
		}
		return len(r.RecordBatch.Records), nil
	case unknownRecords:
		return 0, nil
	}
	return 0, fmt.Errorf("unknown records type: %v", r.recordsType)
}

// isPartial reports whether the wire representation was cut off mid
// record/message, meaning the broker's MaxBytes limit split a batch and
// the consumer should grow its fetch size and retry.
func (r *Records) isPartial() (bool, error) {
	switch r.recordsType {
	case unknownRecords:
		return false, nil
	case legacyRecords:
		if r.MsgSet == nil {
			return false, nil
		}
		return r.MsgSet.PartialTrailingMessage, nil
	case defaultRecords:
		if r.RecordBatch == nil {
			return false, nil
		}
		return r.RecordBatch.PartialTrailingRecord, nil
	}
	return false, fmt.Errorf("unknown records type: %v", r.recordsType)
}

// isControl reports whether this batch is a transaction-marker control
// batch, which the consumer must swallow rather than expose
// to the caller's MessagesStream.
func (r *Records) isControl() (bool, error) {
	switch r.recordsType {
	case unknownRecords:
		return false, nil
	case legacyRecords:
		return false, nil
	case defaultRecords:
		if r.RecordBatch == nil {
			return false, nil
		}
		return r.RecordBatch.Control, nil
	}
	return false, fmt.Errorf("unknown records type: %v", r.recordsType)
}

func (r *Records) getControlRecord() (ControlRecord, error) {
	if r.RecordBatch == nil || len(r.RecordBatch.Records) == 0 {
		return ControlRecord{}, fmt.Errorf("cannot extract control record: batch has no records")
	}

	crKey := &realDecoder{raw: r.RecordBatch.Records[0].Key}
	crValue := &realDecoder{raw: r.RecordBatch.Records[0].Value}

	cr := &ControlRecord{}
	if err := cr.decode(crKey, crValue); err != nil {
		return ControlRecord{}, err
	}
	return *cr, nil
}

func (r *Records) recordsOffset() *int64 {
	switch r.recordsType {
	case legacyRecords:
		if r.MsgSet == nil || len(r.MsgSet.Messages) == 0 {
			return nil
		}
		offset := r.MsgSet.Messages[len(r.MsgSet.Messages)-1].Offset
		return &offset
	case defaultRecords:
		if r.RecordBatch == nil {
			return nil
		}
		offset := r.RecordBatch.LastOffset()
		return &offset
	}
	return nil
}
