package hibp

import (
	"context"
	"crypto/sha1" // #nosec G505 -- the range API is keyed by SHA-1.
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/transport"
)

// DefaultPasswordsURL is the PwnedPasswords endpoint.
const DefaultPasswordsURL = "https://api.pwnedpasswords.com"

// PasswordsClass is the PwnedPasswords API class shared by every client of
// the process.
var PasswordsClass = NewPasswordsClass()

// NewPasswordsClass builds a PwnedPasswords API class.
func NewPasswordsClass(opts ...api.ClassOption) *api.Class {
	return api.NewClass("pwnedpasswords", opts...).MustRegister(api.Spec{
		Name:     "count",
		Doc:      "Times a password appears in breaches, queried by hash prefix.",
		Cache:    &api.CacheSpec{TTL: time.Hour},
		Throttle: &api.Throttle{Period: time.Second, Requests: 1000},
		Handler:  count,
	})
}

func count(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	password, ok := args.String(0)
	if !ok {
		return nil, api.Validation("a password string is required")
	}
	sum := sha1.Sum([]byte(password)) // #nosec G401
	h := strings.ToUpper(hex.EncodeToString(sum[:]))

	resp, err := c.Send(ctx, transport.Request{Method: http.MethodGet, Path: "/range/" + h[:5]})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	for _, line := range strings.Split(resp.Text, "\n") {
		suffix, n, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found || suffix != h[5:] {
			continue
		}
		return strconv.Atoi(n)
	}
	return 0, nil
}
