package netsuite

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	oauthVersion = "1.0"
	nonceBytes   = 16
)

// SignatureContext holds everything one signature is computed from.
// A fresh context (new nonce and timestamp) is used for every request.
type SignatureContext struct {
	Realm          string
	ConsumerKey    string
	ConsumerSecret string
	TokenID        string
	TokenSecret    string
	Method         SignatureMethod
	Nonce          string
	Timestamp      int64
}

// Signer produces OAuth 1.0 Authorization headers for ERP requests
type Signer struct {
	config *Config
	now    func() time.Time
	random io.Reader
}

// SignerOption configures a Signer
type SignerOption func(*Signer)

// WithClock sets the clock used for oauth_timestamp
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// WithRandom sets the entropy source used for oauth_nonce
func WithRandom(r io.Reader) SignerOption {
	return func(s *Signer) {
		s.random = r
	}
}

// NewSigner creates a signer for the given credentials
func NewSigner(config *Config, opts ...SignerOption) *Signer {
	s := &Signer{
		config: config,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewContext returns a signature context with a fresh nonce and timestamp
func (s *Signer) NewContext() (SignatureContext, error) {
	nonce, err := s.nonce()
	if err != nil {
		return SignatureContext{}, err
	}
	return SignatureContext{
		Realm:          s.config.Realm(),
		ConsumerKey:    s.config.ConsumerKey,
		ConsumerSecret: s.config.ConsumerSecret,
		TokenID:        s.config.TokenID,
		TokenSecret:    s.config.TokenSecret,
		Method:         s.config.SignatureMethod,
		Nonce:          nonce,
		Timestamp:      s.now().Unix(),
	}, nil
}

// Sign returns the Authorization header value for a request
func (s *Signer) Sign(method, rawURL string, query url.Values) (string, error) {
	sc, err := s.NewContext()
	if err != nil {
		return "", err
	}
	return SignWith(method, rawURL, query, sc)
}

func (s *Signer) nonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", fmt.Errorf("netsuite: failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SignWith computes the Authorization header for a request using sc as-is.
// Identical inputs always yield the identical header.
func SignWith(method, rawURL string, query url.Values, sc SignatureContext) (string, error) {
	signature, err := Signature(method, rawURL, query, sc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`OAuth realm="`)
	b.WriteString(PercentEncode(sc.Realm))
	b.WriteString(`"`)
	for _, kv := range [][2]string{
		{"oauth_consumer_key", sc.ConsumerKey},
		{"oauth_token", sc.TokenID},
		{"oauth_signature_method", string(sc.Method)},
		{"oauth_timestamp", strconv.FormatInt(sc.Timestamp, 10)},
		{"oauth_nonce", sc.Nonce},
		{"oauth_version", oauthVersion},
		{"oauth_signature", signature},
	} {
		b.WriteString(`, `)
		b.WriteString(kv[0])
		b.WriteString(`="`)
		b.WriteString(PercentEncode(kv[1]))
		b.WriteString(`"`)
	}
	return b.String(), nil
}

// Signature returns base64(HMAC(baseString, signingKey)) for a request.
func Signature(method, rawURL string, query url.Values, sc SignatureContext) (string, error) {
	newHash, err := hashFor(sc.Method)
	if err != nil {
		return "", err
	}
	base, err := SignatureBaseString(method, rawURL, query, sc)
	if err != nil {
		return "", err
	}
	key := PercentEncode(sc.ConsumerSecret) + "&" + PercentEncode(sc.TokenSecret)

	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignatureBaseString builds UPPER(method)&enc(url)&enc(normalized params).
// Query parameters already present on rawURL are merged with query.
func SignatureBaseString(method, rawURL string, query url.Values, sc SignatureContext) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("netsuite: invalid request url: %w", err)
	}

	params := url.Values{}
	for k, vs := range u.Query() {
		params[k] = append(params[k], vs...)
	}
	for k, vs := range query {
		params[k] = append(params[k], vs...)
	}
	params.Set("oauth_consumer_key", sc.ConsumerKey)
	params.Set("oauth_token", sc.TokenID)
	params.Set("oauth_signature_method", string(sc.Method))
	params.Set("oauth_timestamp", strconv.FormatInt(sc.Timestamp, 10))
	params.Set("oauth_nonce", sc.Nonce)
	params.Set("oauth_version", oauthVersion)

	return strings.ToUpper(method) + "&" +
		PercentEncode(baseURI(u)) + "&" +
		PercentEncode(normalizeParams(params)), nil
}

// normalizeParams encodes, sorts by key then value, and joins with '&'
func normalizeParams(params url.Values) string {
	pairs := make([][2]string, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, [2]string{PercentEncode(k), PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p[0] + "=" + p[1]
	}
	return strings.Join(parts, "&")
}

// baseURI is scheme://host/path with scheme and host lower-cased and no query or fragment
func baseURI(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.EscapedPath()
}

func hashFor(method SignatureMethod) (func() hash.Hash, error) {
	switch method {
	case SignatureHMACSHA1:
		return sha1.New, nil
	case SignatureHMACSHA256:
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrConfigInvalidSignature, method)
	}
}

// PercentEncode encodes s per RFC 3986: only ALPHA, DIGIT, '-', '.', '_' and '~'
// are left as-is; every other byte becomes %XX with upper-case hex.
func PercentEncode(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
