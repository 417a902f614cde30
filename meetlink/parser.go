// Package meetlink understands shareable meeting links of the form
// [scheme://]host[:port]/{c|m}/{roomName}[/...].
package meetlink

import (
	"net"
	"net/url"
	"strings"

	"github.com/imtaco/bedrud-client/internal/errors"
)

const defaultScheme = "https"

// MeetingLink is the server and room a link points at.
type MeetingLink struct {
	ServerBaseURL string
	RoomName      string
}

// Parse never touches the network. Every failure carries errors.ErrValidation.
func Parse(raw string) (*MeetingLink, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.New(errors.ErrValidation, "empty meeting link")
	}
	if !strings.Contains(s, "://") {
		s = defaultScheme + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrValidation, err, "malformed meeting link")
	}
	if u.Hostname() == "" {
		return nil, errors.Newf(errors.ErrValidation, "meeting link %q has no host", raw)
	}

	segs := pathSegments(u.Path)
	if len(segs) < 2 {
		return nil, errors.Newf(errors.ErrValidation, "meeting link %q has no room", raw)
	}
	if segs[0] != "c" && segs[0] != "m" {
		return nil, errors.Newf(errors.ErrValidation, "meeting link %q is not a room link", raw)
	}

	return &MeetingLink{
		ServerBaseURL: baseURL(u),
		RoomName:      segs[1],
	}, nil
}

func pathSegments(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func baseURL(u *url.URL) string {
	host := u.Hostname()
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host
}

// SameServer reports whether two server URLs address the same deployment,
// ignoring scheme case, host case and trailing slashes.
func SameServer(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(s)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
}
