package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCard = `<!DOCTYPE html>
<html><body>
<div class="card">
  <strong>Jane Mega</strong>
  <a href="tel:+1 555-123-4567">Call</a>
  <p>Reach me at jane.mega@example.com or on the street.</p>
</div>
</body></html>`

func TestParseContact(t *testing.T) {
	info := ParseContact(sampleCard)

	assert.Equal(t, "Jane Mega", info.Name)
	assert.Equal(t, "15551234567", info.Phone)
	assert.Equal(t, "jane.mega@example.com", info.Email)
}

func TestParseContactPhoneLabel(t *testing.T) {
	info := ParseContact(`<h1>Bob</h1> Phone: 07 123 456 789 bob@x.org`)

	assert.Equal(t, "Bob", info.Name)
	assert.Equal(t, "07123456789", info.Phone)
	assert.Equal(t, "bob@x.org", info.Email)
}

func TestParseContactMissingFields(t *testing.T) {
	info := ParseContact(`<p>nothing useful here</p>`)

	assert.Empty(t, info.Name)
	assert.Empty(t, info.Phone)
	assert.Empty(t, info.Email)
}

func TestFetchContactCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCard))
	}))
	defer srv.Close()

	f := NewQR1BeFetcher(zap.NewNop())
	info, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "jane.mega@example.com", info.Email)
}

// A card without an email is useless: the email is the membership key.
func TestFetchContactCardNoEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<strong>Nameless</strong>`))
	}))
	defer srv.Close()

	f := NewQR1BeFetcher(zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNoContact)
}
