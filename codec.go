package gokafka

// decodeVersioned parses buf into a versionedDecoder (request/response
// bodies, whose wire shape depends on the negotiated API version) using a
// single realDecoder pass.
func decodeVersioned(buf []byte, in versionedDecoder, version int16) error {
	if len(buf) == 0 {
		return nil
	}
	d := &realDecoder{raw: buf}
	if err := in.decode(d, version); err != nil {
		return err
	}
	if len(d.stack) != 0 {
		return PacketDecodingError{"invalid decoder stack state, unresolved push()"}
	}
	return nil
}
