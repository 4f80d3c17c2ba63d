package safeurl

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

type staticResolver map[string][]string

func (r staticResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func TestCheck(t *testing.T) {
	g := &Guard{Resolver: staticResolver{
		"example.com":   {"93.184.216.34"},
		"intranet.corp": {"10.1.2.3"},
		"mixed.example": {"93.184.216.34", "192.168.0.7"},
	}}
	tests := []struct {
		url  string
		want error
	}{
		{"https://example.com/page", nil},
		{"http://example.com:8080/", nil},
		{"https://unresolvable.example/", nil},
		{"ftp://example.com/file", ErrUnsafeScheme},
		{"javascript:alert(1)", ErrUnsafeScheme},
		{"file:///etc/passwd", ErrUnsafeScheme},
		{"https:///nohost", ErrNoHost},
		{"http://127.0.0.1/admin", ErrPrivate},
		{"http://10.0.0.1/", ErrPrivate},
		{"http://[::1]/", ErrPrivate},
		{"http://[::ffff:192.168.1.1]/", ErrPrivate},
		{"http://0.0.0.0/", ErrPrivate},
		{"http://localhost:3000/", ErrPrivate},
		{"http://intranet.corp/", ErrPrivate},
		{"http://mixed.example/", ErrPrivate},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := g.Check(context.Background(), tt.url)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrRejected) {
				t.Fatalf("err = %v does not wrap ErrRejected", err)
			}
		})
	}
}

func TestCheck_AllowPrivate(t *testing.T) {
	g := &Guard{AllowPrivate: true}
	if _, err := g.Check(context.Background(), "http://127.0.0.1:8080/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Check(context.Background(), "ftp://127.0.0.1/"); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("err = %v, want ErrUnsafeScheme", err)
	}
}

func TestIsPrivate(t *testing.T) {
	for addr, want := range map[string]bool{
		"8.8.8.8":     false,
		"172.15.0.1":  false,
		"172.16.0.1":  true,
		"100.64.1.1":  true,
		"169.254.1.1": true,
		"fd00::1":     true,
		"2001:db8::1": false,
	} {
		if got := IsPrivate(netip.MustParseAddr(addr)); got != want {
			t.Errorf("IsPrivate(%s) = %v, want %v", addr, got, want)
		}
	}
}
