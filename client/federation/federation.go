// Package federation attaches node-to-node credentials to requests that
// leave the home node.
package federation

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-fed/httpsig"
	"github.com/tkrehbiel/distrolace/client/api"
	"github.com/tkrehbiel/distrolace/client/storage"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// ErrUnknownNode means there is no active credential for a host
var ErrUnknownNode = errors.New("unknown node")

var signedHeaders = []string{httpsig.RequestTarget, "host", "date", "digest"}

type NodeStore interface {
	FindNode(host string) (*storage.RemoteNode, error)
	GetNodes() ([]storage.RemoteNode, error)
	SaveNode(n *storage.RemoteNode) error
}

// Exchange looks up and applies credentials for remote nodes
type Exchange struct {
	nodes NodeStore

	lock sync.Mutex
	keys map[string]crypto.PrivateKey
}

func NewExchange(nodes NodeStore) *Exchange {
	return &Exchange{
		nodes: nodes,
		keys:  make(map[string]crypto.PrivateKey),
	}
}

// Establish returns a request option carrying the credential for host
func (e *Exchange) Establish(ctx context.Context, host string) (api.RequestOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, err := e.nodes.FindNode(host)
	if err != nil {
		return nil, fmt.Errorf("finding node %s: %w", host, err)
	}
	if node == nil || !node.Active {
		telemetry.Increment("federation_unknown_node", 1)
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, host)
	}

	switch {
	case node.Username != "":
		username, password := node.Username, node.Password
		return func(r *http.Request) error {
			r.SetBasicAuth(username, password)
			return nil
		}, nil
	case node.KeyID != "":
		key, err := e.privateKey(node)
		if err != nil {
			return nil, err
		}
		keyID := node.KeyID
		return func(r *http.Request) error {
			return sign(key, keyID, r)
		}, nil
	}
	return nil, fmt.Errorf("%w: %s has no credentials", ErrUnknownNode, host)
}

// Register adds or replaces a node's credentials
func (e *Exchange) Register(node storage.RemoteNode) error {
	if node.Host == "" {
		return errors.New("node host is required")
	}
	if node.KeyID != "" {
		if _, err := parsePrivateKey(node.PrivateKeyPEM); err != nil {
			return fmt.Errorf("node %s: %w", node.Host, err)
		}
	}
	e.lock.Lock()
	delete(e.keys, node.Host)
	e.lock.Unlock()
	return e.nodes.SaveNode(&node)
}

func (e *Exchange) Nodes() ([]storage.RemoteNode, error) {
	return e.nodes.GetNodes()
}

func (e *Exchange) privateKey(node *storage.RemoteNode) (crypto.PrivateKey, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if key, ok := e.keys[node.Host]; ok {
		return key, nil
	}
	key, err := parsePrivateKey(node.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", node.Host, err)
	}
	e.keys[node.Host] = key
	return key, nil
}

func parsePrivateKey(data string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, errors.New("no PEM private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// sign adds Date, Digest and Signature headers to a request
func sign(key crypto.PrivateKey, keyID string, r *http.Request) error {
	body := []byte{}
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		r.Body.Close()
		body = b
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	r.Header.Set("Host", r.URL.Host)

	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		signedHeaders,
		httpsig.Signature,
		0,
	)
	if err != nil {
		return err
	}
	if err := signer.SignRequest(key, keyID, r, body); err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	telemetry.Increment("federation_signed", 1)
	telemetry.Request(r, "signed as %s", keyID)
	return nil
}
