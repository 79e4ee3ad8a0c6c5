package verify

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallstreet/megabot/pkg/retry"
	"github.com/smallstreet/megabot/pkg/utils"
	"go.uber.org/zap"
)

// ContactInfo is what a qr1.be contact card exposes.
type ContactInfo struct {
	Name  string
	Phone string
	Email string
}

// ContactFetcher loads the contact card a QR code points to.
type ContactFetcher interface {
	Fetch(ctx context.Context, url string) (*ContactInfo, error)
}

// The card is plain HTML without a machine-readable payload, so the fields
// are scraped the same way the original bot did.
var (
	nameRe  = regexp.MustCompile(`<(?:strong|h1|h2|div)[^>]*>([^<]+)</(?:strong|h1|h2|div)>`)
	phoneRe = regexp.MustCompile(`(?:tel:|Phone:|phone:)[^\d]*(\d[\d\s-]{8,})`)
	emailRe = regexp.MustCompile(`([a-zA-Z0-9._+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	digitRe = regexp.MustCompile(`\D`)
)

// QR1BeFetcher scrapes qr1.be contact pages.
type QR1BeFetcher struct {
	http     *http.Client
	retryCfg retry.Config
	logger   *zap.Logger
}

func NewQR1BeFetcher(logger *zap.Logger) *QR1BeFetcher {
	return &QR1BeFetcher{
		http:     &http.Client{Timeout: 15 * time.Second},
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// Fetch loads the contact page and extracts name, phone and email. A page
// without an email yields ErrNoContact: the email is the membership key.
func (f *QR1BeFetcher) Fetch(ctx context.Context, url string) (*ContactInfo, error) {
	var html string
	err := retry.WithBackoff(ctx, f.retryCfg, f.logger, "fetch_contact_card", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := f.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = utils.DrainAndClose(resp.Body) }()

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		html = string(body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	info := ParseContact(html)
	if info.Email == "" {
		return nil, ErrNoContact
	}
	return info, nil
}

// ParseContact extracts contact fields from raw card HTML.
func ParseContact(html string) *ContactInfo {
	info := &ContactInfo{}

	if m := nameRe.FindStringSubmatch(html); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	if m := phoneRe.FindStringSubmatch(html); m != nil {
		info.Phone = digitRe.ReplaceAllString(m[1], "")
	}
	if m := emailRe.FindStringSubmatch(html); m != nil {
		info.Email = strings.TrimSpace(m[1])
	}
	return info
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.code)
}
