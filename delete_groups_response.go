package gokafka

import "time"

type DeleteGroupsResponse struct {
	Version         int16
	ThrottleTime    time.Duration
	GroupErrorCodes map[string]KError
}

func (r *DeleteGroupsResponse) setVersion(v int16) { r.Version = v }

func (r *DeleteGroupsResponse) flexible() bool { return r.Version >= 2 }

func (r *DeleteGroupsResponse) encode(pe packetEncoder) error {
	pe.putInt32(int32(r.ThrottleTime / time.Millisecond))

	if r.flexible() {
		pe.putCompactArrayLength(len(r.GroupErrorCodes))
	} else if err := pe.putArrayLength(len(r.GroupErrorCodes)); err != nil {
		return err
	}
	for group, errCode := range r.GroupErrorCodes {
		var err error
		if r.flexible() {
			err = pe.putCompactString(group)
		} else {
			err = pe.putString(group)
		}
		if err != nil {
			return err
		}
		pe.putInt16(int16(errCode))
		if r.flexible() {
			pe.putEmptyTaggedFieldArray()
		}
	}

	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *DeleteGroupsResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	throttleTime, err := pd.getInt32()
	if err != nil {
		return err
	}
	r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	r.GroupErrorCodes = make(map[string]KError, n)
	for i := 0; i < n; i++ {
		var group string
		if r.flexible() {
			group, err = pd.getCompactString()
		} else {
			group, err = pd.getString()
		}
		if err != nil {
			return err
		}
		errCode, err := pd.getInt16()
		if err != nil {
			return err
		}
		r.GroupErrorCodes[group] = KError(errCode)
		if r.flexible() {
			if _, err := pd.getEmptyTaggedFieldArray(); err != nil {
				return err
			}
		}
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *DeleteGroupsResponse) key() int16 { return apiKeyDeleteGroups }
func (r *DeleteGroupsResponse) version() int16 { return r.Version }
func (r *DeleteGroupsResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *DeleteGroupsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 2 }
func (r *DeleteGroupsResponse) requiredVersion() KafkaVersion {
	if r.Version >= 2 {
		return V2_4_0_0
	}
	return V1_1_0_0
}
func (r *DeleteGroupsResponse) throttleTime() time.Duration { return r.ThrottleTime }
