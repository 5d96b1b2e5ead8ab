package gokafka

import "time"

// ApiVersionKeyRange is a single API key's supported [min,max] range as
// advertised by a broker.
type ApiVersionKeyRange struct {
	ApiKey     int16
	MinVersion int16
	MaxVersion int16
}

func (a *ApiVersionKeyRange) encode(pe packetEncoder, flexible bool) error {
	pe.putInt16(a.ApiKey)
	pe.putInt16(a.MinVersion)
	pe.putInt16(a.MaxVersion)
	if flexible {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (a *ApiVersionKeyRange) decode(pd packetDecoder, flexible bool) (err error) {
	if a.ApiKey, err = pd.getInt16(); err != nil {
		return err
	}
	if a.MinVersion, err = pd.getInt16(); err != nil {
		return err
	}
	if a.MaxVersion, err = pd.getInt16(); err != nil {
		return err
	}
	if flexible {
		if _, err = pd.getEmptyTaggedFieldArray(); err != nil {
			return err
		}
	}
	return nil
}

type ApiVersionsResponse struct {
	Version        int16
	Err            KError
	ApiKeys        []ApiVersionKeyRange
	ThrottleTime   time.Duration
}

func (r *ApiVersionsResponse) setVersion(v int16) { r.Version = v }

func (r *ApiVersionsResponse) flexible() bool { return r.Version >= 3 }

func (r *ApiVersionsResponse) encode(pe packetEncoder) error {
	pe.putInt16(int16(r.Err))

	if r.flexible() {
		pe.putCompactArrayLength(len(r.ApiKeys))
	} else if err := pe.putArrayLength(len(r.ApiKeys)); err != nil {
		return err
	}
	for i := range r.ApiKeys {
		if err := r.ApiKeys[i].encode(pe, r.flexible()); err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		pe.putInt32(int32(r.ThrottleTime / time.Millisecond))
	}
	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *ApiVersionsResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	r.Err = KError(errCode)

	var n int
	if r.flexible() {
		n, err = pd.getCompactArrayLength()
	} else {
		n, err = pd.getArrayLength()
	}
	if err != nil {
		return err
	}

	r.ApiKeys = make([]ApiVersionKeyRange, n)
	for i := 0; i < n; i++ {
		if err := r.ApiKeys[i].decode(pd, r.flexible()); err != nil {
			return err
		}
	}

	if r.Version >= 1 {
		throttleTime, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.ThrottleTime = time.Duration(throttleTime) * time.Millisecond
	}

	if r.flexible() {
		if _, err = pd.getEmptyTaggedFieldArray(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ApiVersionsResponse) key() int16          { return apiKeyApiVersions }
func (r *ApiVersionsResponse) version() int16       { return r.Version }
func (r *ApiVersionsResponse) headerVersion() int16 { return 0 }
func (r *ApiVersionsResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 3 }
func (r *ApiVersionsResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 3:
		return V2_4_0_0
	case r.Version == 2:
		return V2_0_0_0
	case r.Version == 1:
		return V0_11_0_0
	default:
		return V0_10_0_0
	}
}
func (r *ApiVersionsResponse) throttleTime() time.Duration { return r.ThrottleTime }
