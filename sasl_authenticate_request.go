package gokafka

// SaslAuthenticateRequest carries one opaque round-trip of a SASL exchange
// (PLAIN's single frame, SCRAM's client-first/client-final, OAUTHBEARER's
// token, or a GSSAPI token) inside an already-negotiated mechanism.
type SaslAuthenticateRequest struct {
	Version     int16
	SaslAuthBytes []byte
}

func (r *SaslAuthenticateRequest) setVersion(v int16) { r.Version = v }

func (r *SaslAuthenticateRequest) encode(pe packetEncoder) error {
	if r.Version >= 2 {
		if err := pe.putCompactBytes(r.SaslAuthBytes); err != nil {
			return err
		}
		pe.putEmptyTaggedFieldArray()
		return nil
	}
	return pe.putBytes(r.SaslAuthBytes)
}

func (r *SaslAuthenticateRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version
	if r.Version >= 2 {
		if r.SaslAuthBytes, err = pd.getCompactBytes(); err != nil {
			return err
		}
		_, err = pd.getEmptyTaggedFieldArray()
		return err
	}
	r.SaslAuthBytes, err = pd.getBytes()
	return err
}

func (r *SaslAuthenticateRequest) key() int16 { return apiKeySaslAuthenticate }
func (r *SaslAuthenticateRequest) version() int16 { return r.Version }
func (r *SaslAuthenticateRequest) headerVersion() int16 {
	if r.Version >= 2 {
		return 2
	}
	return 1
}
func (r *SaslAuthenticateRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 2 }
func (r *SaslAuthenticateRequest) requiredVersion() KafkaVersion {
	switch {
	case r.Version >= 2:
		return V2_2_0_0
	case r.Version == 1:
		return V2_0_0_0
	default:
		return V1_0_0_0
	}
}
