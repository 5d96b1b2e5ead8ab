package gokafka

import "time"

type SaslAuthenticateResponse struct {
	Version         int16
	Err             KError
	ErrMsg          *string
	SaslAuthBytes   []byte
	SessionLifetime time.Duration
}

func (r *SaslAuthenticateResponse) setVersion(v int16) { r.Version = v }

func (r *SaslAuthenticateResponse) flexible() bool { return r.Version >= 2 }

func (r *SaslAuthenticateResponse) encode(pe packetEncoder) error {
	pe.putInt16(int16(r.Err))

	var err error
	if r.flexible() {
		err = pe.putNullableCompactString(r.ErrMsg)
	} else {
		err = pe.putNullableString(r.ErrMsg)
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		if err := pe.putCompactBytes(r.SaslAuthBytes); err != nil {
			return err
		}
	} else if err := pe.putBytes(r.SaslAuthBytes); err != nil {
		return err
	}

	if r.Version >= 1 {
		pe.putInt64(int64(r.SessionLifetime / time.Millisecond))
	}
	if r.flexible() {
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *SaslAuthenticateResponse) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version

	errCode, err := pd.getInt16()
	if err != nil {
		return err
	}
	r.Err = KError(errCode)

	if r.flexible() {
		r.ErrMsg, err = pd.getCompactNullableString()
	} else {
		r.ErrMsg, err = pd.getNullableString()
	}
	if err != nil {
		return err
	}

	if r.flexible() {
		r.SaslAuthBytes, err = pd.getCompactBytes()
	} else {
		r.SaslAuthBytes, err = pd.getBytes()
	}
	if err != nil {
		return err
	}

	if r.Version >= 1 {
		lifetime, err := pd.getInt64()
		if err != nil {
			return err
		}
		r.SessionLifetime = time.Duration(lifetime) * time.Millisecond
	}

	if r.flexible() {
		_, err = pd.getEmptyTaggedFieldArray()
	}
	return err
}

func (r *SaslAuthenticateResponse) key() int16 { return apiKeySaslAuthenticate }
func (r *SaslAuthenticateResponse) version() int16 { return r.Version }
func (r *SaslAuthenticateResponse) headerVersion() int16 {
	if r.flexible() {
		return 1
	}
	return 0
}
func (r *SaslAuthenticateResponse) isValidVersion() bool { return r.Version >= 0 && r.Version <= 2 }
func (r *SaslAuthenticateResponse) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 2:
		return V2_2_0_0
	case r.Version == 1:
		return V2_0_0_0
	default:
		return V1_0_0_0
	}
}
