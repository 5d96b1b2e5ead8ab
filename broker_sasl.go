package gokafka

import (
	"fmt"
	"time"
)

// authenticateSASL drives the handshake selected by conf.Net.SASL.Mechanism:
// an optional SaslHandshakeRequest (skippable for brokers/mocks that don't
// require it) followed by one or more opaque SaslAuthenticateRequest
// round-trips. On success it arms a re-authentication timer at 80% of the
// broker-reported session lifetime.
func (b *Broker) authenticateSASL() error {
	conf := b.conf

	if conf.Net.SASL.Handshake {
		resp, err := b.SaslHandshake(&SaslHandshakeRequest{Version: 1, Mechanism: string(conf.Net.SASL.Mechanism)})
		if err != nil {
			return err
		}
		if resp.Err != ErrNoError {
			return fmt.Errorf("kafka: sasl handshake rejected mechanism %s: %w", conf.Net.SASL.Mechanism, resp.Err)
		}
	}

	switch conf.Net.SASL.Mechanism {
	case SASLTypePlaintext, "":
		return b.saslAuthenticatePlain()
	case SASLTypeSCRAMSHA256, SASLTypeSCRAMSHA512:
		return b.saslAuthenticateSCRAM()
	case SASLTypeOAuth:
		return b.saslAuthenticateOAuth()
	case SASLTypeGSSAPI:
		return b.saslAuthenticateGSSAPI()
	default:
		return &UnsupportedApiError{API: string(conf.Net.SASL.Mechanism)}
	}
}

func (b *Broker) saslAuthenticatePlain() error {
	conf := b.conf
	payload := []byte("\x00" + conf.Net.SASL.User + "\x00" + conf.Net.SASL.Password)
	return b.saslAuthenticateStep(payload)
}

func (b *Broker) saslAuthenticateSCRAM() error {
	conf := b.conf
	client := conf.Net.SASL.SCRAMClient()
	if err := client.Begin(conf.Net.SASL.User, conf.Net.SASL.Password, ""); err != nil {
		return err
	}

	clientFirst, err := client.Step("")
	if err != nil {
		return err
	}
	resp, err := b.SaslAuthenticate(&SaslAuthenticateRequest{Version: 1, SaslAuthBytes: []byte(clientFirst)})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return protocolErrFromResponse(resp.Err, resp.ErrMsg)
	}

	clientFinal, err := client.Step(string(resp.SaslAuthBytes))
	if err != nil {
		return err
	}
	resp, err = b.SaslAuthenticate(&SaslAuthenticateRequest{Version: 1, SaslAuthBytes: []byte(clientFinal)})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return protocolErrFromResponse(resp.Err, resp.ErrMsg)
	}
	if !client.Done() {
		// one more empty round confirms the server-final message
		if _, err := client.Step(string(resp.SaslAuthBytes)); err != nil {
			return err
		}
	}

	b.armReauth(resp.SessionLifetime)
	return nil
}

func (b *Broker) saslAuthenticateOAuth() error {
	conf := b.conf
	token, err := conf.Net.SASL.TokenProvider.Token()
	if err != nil {
		return err
	}

	payload := "n,,\x01auth=Bearer " + token.Token
	for k, v := range token.Extensions {
		payload += "\x01" + k + "=" + v
	}
	payload += "\x01\x01"

	return b.saslAuthenticateStep([]byte(payload))
}

func (b *Broker) saslAuthenticateGSSAPI() error {
	conf := b.conf
	gssConf := &conf.Net.SASL.GSSAPI
	if gssConf.ServiceName == "" {
		return &UnsupportedApiError{API: "GSSAPI requires Net.SASL.GSSAPI.ServiceName"}
	}

	ctx, err := newGSSAPIContext(gssConf)
	if err != nil {
		return err
	}
	defer ctx.close()

	initial, _, err := ctx.initialToken()
	if err != nil {
		return fmt.Errorf("kafka: gssapi: building AP-REQ: %w", err)
	}
	resp, err := b.SaslAuthenticate(&SaslAuthenticateRequest{Version: 1, SaslAuthBytes: initial})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return protocolErrFromResponse(resp.Err, resp.ErrMsg)
	}

	final, err := ctx.finalToken(resp.SaslAuthBytes)
	if err != nil {
		return fmt.Errorf("kafka: gssapi: security layer negotiation: %w", err)
	}
	resp, err = b.SaslAuthenticate(&SaslAuthenticateRequest{Version: 1, SaslAuthBytes: final})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return protocolErrFromResponse(resp.Err, resp.ErrMsg)
	}

	b.armReauth(resp.SessionLifetime)
	return nil
}

func (b *Broker) saslAuthenticateStep(payload []byte) error {
	resp, err := b.SaslAuthenticate(&SaslAuthenticateRequest{Version: 1, SaslAuthBytes: payload})
	if err != nil {
		return err
	}
	if resp.Err != ErrNoError {
		return protocolErrFromResponse(resp.Err, resp.ErrMsg)
	}
	b.armReauth(resp.SessionLifetime)
	return nil
}

func protocolErrFromResponse(code KError, msg *string) error {
	context := ""
	if msg != nil {
		context = *msg
	}
	return NewProtocolError(code, context)
}

// armReauth schedules a proactive re-authentication at 80% of the
// broker-granted session lifetime so the connection never hits the
// broker's own hard cutoff mid-request.
func (b *Broker) armReauth(lifetime time.Duration) {
	if configured := b.conf.Net.SASL.SessionLifetime; configured > 0 && (lifetime <= 0 || configured < lifetime) {
		lifetime = configured
	}
	if lifetime <= 0 {
		return
	}
	delay := time.Duration(float64(lifetime) * 0.8)
	go func() {
		select {
		case <-time.After(delay):
			if err := b.authenticateSASL(); err != nil {
				Logger.Printf("kafka: broker/%s: SASL re-authentication failed: %v\n", b.addr, err)
			}
		case <-b.done:
		}
	}()
}
