package gokafka

// ApiVersionsRequest lets the client discover the broker's supported
// version range per API key so it can negotiate down to a version both
// sides speak.
type ApiVersionsRequest struct {
	Version               int16
	ClientSoftwareName    string
	ClientSoftwareVersion string
}

func (r *ApiVersionsRequest) setVersion(v int16) { r.Version = v }

func (r *ApiVersionsRequest) encode(pe packetEncoder) error {
	if r.Version >= 3 {
		if err := pe.putCompactString(r.ClientSoftwareName); err != nil {
			return err
		}
		if err := pe.putCompactString(r.ClientSoftwareVersion); err != nil {
			return err
		}
		pe.putEmptyTaggedFieldArray()
	}
	return nil
}

func (r *ApiVersionsRequest) decode(pd packetDecoder, version int16) (err error) {
	r.Version = version
	if r.Version >= 3 {
		if r.ClientSoftwareName, err = pd.getCompactString(); err != nil {
			return err
		}
		if r.ClientSoftwareVersion, err = pd.getCompactString(); err != nil {
			return err
		}
		if _, err = pd.getEmptyTaggedFieldArray(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ApiVersionsRequest) key() int16        { return apiKeyApiVersions }
func (r *ApiVersionsRequest) version() int16     { return r.Version }
func (r *ApiVersionsRequest) headerVersion() int16 {
	// ApiVersions is special-cased by the broker: the request header is
	// always v1 (never v2/flexible) even when the body itself is flexible,
	// because the client may not yet know whether the broker understands
	// flexible headers at all.
	return 1
}
func (r *ApiVersionsRequest) isValidVersion() bool { return r.Version >= 0 && r.Version <= 3 }
func (r *ApiVersionsRequest) requiredVersion() KafkaVersion {
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
