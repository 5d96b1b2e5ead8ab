package gokafka

import (
	"fmt"

	"github.com/xdg-go/scram"
)

// AccessTokenProvider is implemented by callers wiring OAUTHBEARER: Token
// is invoked once per (re-)authentication to fetch a fresh bearer token,
// matching the "supply a provider, we drive the protocol" shape
// for every pluggable SASL mechanism.
type AccessTokenProvider interface {
	Token() (*AccessToken, error)
}

// AccessToken is the provider's answer: the bearer token string plus any
// SASL extensions the broker should see in the OAUTHBEARER client-final
// message.
type AccessToken struct {
	Token      string
	Extensions map[string]string
}

// SCRAMClient is the three-round RFC 5802 handshake state machine a
// SCRAMClientGenerator produces, scoped to a single authentication attempt.
type SCRAMClient interface {
	Begin(userName, password, authzID string) error
	Step(challenge string) (string, error)
	Done() bool
}

// SCRAMClientGenerator constructs a fresh SCRAMClient per authentication
// attempt (re-auth needs a clean nonce/state).
type SCRAMClientGenerator func() SCRAMClient

// xdgSCRAMClient adapts github.com/xdg-go/scram to the SCRAMClient
// interface above, grounded in the SCRAM vendor tree retrieved alongside
// this spec's domain dependencies.
type xdgSCRAMClient struct {
	*scram.ClientConversation
	hashFn scram.HashGeneratorFcn
}

// NewSCRAMSHA256Client returns a SCRAMClientGenerator for the
// SCRAM-SHA-256 mechanism.
func NewSCRAMSHA256Client() SCRAMClientGenerator {
	return func() SCRAMClient { return &xdgSCRAMClient{hashFn: scram.SHA256} }
}

// NewSCRAMSHA512Client returns a SCRAMClientGenerator for the
// SCRAM-SHA-512 mechanism.
func NewSCRAMSHA512Client() SCRAMClientGenerator {
	return func() SCRAMClient { return &xdgSCRAMClient{hashFn: scram.SHA512} }
}

func (c *xdgSCRAMClient) Begin(userName, password, authzID string) error {
	client, err := c.hashFn.NewClient(userName, password, authzID)
	if err != nil {
		return fmt.Errorf("kafka: scram client init: %w", err)
	}
	c.ClientConversation = client.NewConversation()
	return nil
}

func (c *xdgSCRAMClient) Step(challenge string) (string, error) {
	return c.ClientConversation.Step(challenge)
}

func (c *xdgSCRAMClient) Done() bool {
	return c.ClientConversation.Done()
}

// GSSAPIConfig carries the Kerberos principal/keytab options
// jcmturner/gokrb5's client needs to negotiate a GSSAPI security context;
// left to the caller to populate when Net.SASL.Mechanism is GSSAPI.
type GSSAPIConfig struct {
	AuthType           int
	KeyTabPath         string
	KerberosConfigPath string
	ServiceName        string
	Username           string
	Password           string
	Realm              string
	DisablePAFXFAST    bool
}

const (
	// KRB5UserAuth authenticates with a username/password.
	KRB5UserAuth = iota
	// KRB5KeyTabAuth authenticates with a keytab file.
	KRB5KeyTabAuth
)
