package lead

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/gulfcoast/internal/domain"
)

// recordingSink captures every delivered lead.
type recordingSink struct {
	mu    sync.Mutex
	leads []domain.Lead
	err   error
}

func (s *recordingSink) Deliver(_ context.Context, l domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, l)
	return s.err
}

func (s *recordingSink) calls() []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Lead(nil), s.leads...)
}

// =============================================================================
// Contact form
// =============================================================================

func TestContactForm_ValidSubmitDeliversOnce(t *testing.T) {
	sink := &recordingSink{}
	key := domain.NewLeadKey()
	f := NewContactForm(key)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.SetClock(func() time.Time { return fixed })

	require.NoError(t, f.Update(FieldName, "Ashley"))
	require.NoError(t, f.Update(FieldEmail, "ashley@example.com"))
	require.NoError(t, f.Update(FieldPhone, "251-555-0100"))
	require.NoError(t, f.Update(FieldSubject, "Fairhope"))
	require.NoError(t, f.Update(FieldMessage, "Looking for 3BR"))

	require.NoError(t, f.Submit(context.Background(), sink))

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, key, calls[0].Key)
	assert.Equal(t, domain.LeadSourceContact, calls[0].Source)
	assert.Equal(t, fixed, calls[0].ReceivedAt)
	assert.Equal(t, domain.LeadFormData{
		Name:    "Ashley",
		Email:   "ashley@example.com",
		Phone:   "251-555-0100",
		Subject: "Fairhope",
		Message: "Looking for 3BR",
	}, *calls[0].Form)

	assert.Equal(t, StateSubmitted, f.State())
	assert.True(t, f.Submitted())
}

func TestContactForm_SubmittedNeverReverts(t *testing.T) {
	sink := &recordingSink{}
	f := NewContactForm("")
	require.NoError(t, f.Update(FieldName, "Ben"))
	require.NoError(t, f.Update(FieldEmail, "ben@example.com"))
	require.NoError(t, f.Submit(context.Background(), sink))

	err := f.Submit(context.Background(), sink)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	err = f.Update(FieldName, "Changed")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	assert.Len(t, sink.calls(), 1)
	assert.Equal(t, StateSubmitted, f.State())
	assert.Equal(t, "Ben", f.Data().Name)
}

func TestContactForm_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		wantErrors []string
	}{
		{
			name:       "empty form",
			fields:     map[string]string{},
			wantErrors: []string{FieldName, FieldEmail},
		},
		{
			name:       "missing email",
			fields:     map[string]string{FieldName: "Carrie", FieldMessage: "Hi"},
			wantErrors: []string{FieldEmail},
		},
		{
			name:       "missing name",
			fields:     map[string]string{FieldEmail: "carrie@example.com"},
			wantErrors: []string{FieldName},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			f := NewContactForm("")
			for field, value := range tt.fields {
				require.NoError(t, f.Update(field, value))
			}
			before := f.Data()

			err := f.Submit(context.Background(), sink)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "lead.contact.submit", ve.Op)
			assert.Len(t, ve.Fields, len(tt.wantErrors))
			for _, field := range tt.wantErrors {
				assert.True(t, ve.Has(field), "expected error for %s", field)
			}
			assert.Empty(t, sink.calls())
			assert.Equal(t, StateEditing, f.State())
			assert.Equal(t, before, f.Data())
			assert.Equal(t, ve, f.FieldErrors())
		})
	}
}

func TestContactForm_NoFormatValidation(t *testing.T) {
	sink := &recordingSink{}
	f := NewContactForm("")
	require.NoError(t, f.Update(FieldName, "x"))
	require.NoError(t, f.Update(FieldEmail, "not-an-email"))
	require.NoError(t, f.Update(FieldPhone, "call me maybe"))

	require.NoError(t, f.Submit(context.Background(), sink))
	assert.Len(t, sink.calls(), 1)
}

func TestContactForm_SinkFailureKeepsData(t *testing.T) {
	sink := &recordingSink{err: errors.New("smtp: connection refused")}
	f := NewContactForm(domain.NewLeadKey())
	require.NoError(t, f.Update(FieldName, "Dana"))
	require.NoError(t, f.Update(FieldEmail, "dana@example.com"))
	require.NoError(t, f.Update(FieldMessage, "Selling in Daphne"))

	err := f.Submit(context.Background(), sink)

	require.Error(t, err)
	assert.Equal(t, domain.ESUBMISSION, domain.ErrorCode(err))
	assert.Equal(t, StateEditing, f.State())
	assert.Equal(t, "Dana", f.Data().Name)
	assert.Equal(t, "Selling in Daphne", f.Data().Message)
	assert.Equal(t, err, f.Failure())
	assert.NotEmpty(t, f.FailureMessage())
	assert.NotContains(t, f.FailureMessage(), "smtp")

	// Retry succeeds with the same key.
	sink.err = nil
	require.NoError(t, f.Submit(context.Background(), sink))
	calls := sink.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Key, calls[1].Key)
	assert.Nil(t, f.Failure())
	assert.True(t, f.Submitted())
}

func TestContactForm_ConflictPassesThrough(t *testing.T) {
	conflict := domain.Conflict("sink.idempotent", "Your message is already being sent.")
	sink := &recordingSink{err: conflict}
	f := NewContactForm("")
	require.NoError(t, f.Update(FieldName, "Eve"))
	require.NoError(t, f.Update(FieldEmail, "eve@example.com"))

	err := f.Submit(context.Background(), sink)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, StateEditing, f.State())
}

func TestContactForm_SubmitInFlightRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	sink := SinkFunc(func(ctx context.Context, l domain.Lead) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return nil
	})

	f := NewContactForm("")
	require.NoError(t, f.Update(FieldName, "Finn"))
	require.NoError(t, f.Update(FieldEmail, "finn@example.com"))

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background(), sink) }()

	<-started
	assert.Equal(t, StateSubmitting, f.State())
	assert.ErrorIs(t, f.Submit(context.Background(), sink), ErrSubmissionInFlight)
	assert.ErrorIs(t, f.Update(FieldName, "x"), ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.True(t, f.Submitted())
}

func TestContactForm_DerivesKeyWhenMissing(t *testing.T) {
	sink := &recordingSink{}
	f := NewContactForm("")
	require.NoError(t, f.Update(FieldName, "Gail"))
	require.NoError(t, f.Update(FieldEmail, "gail@example.com"))
	require.NoError(t, f.Submit(context.Background(), sink))

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.True(t, domain.ValidLeadKey(calls[0].Key))
	assert.Equal(t, calls[0].Key, f.Key())
}

func TestContactForm_UnknownField(t *testing.T) {
	f := NewContactForm("")
	err := f.Update("zip", "36526")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

// =============================================================================
// Modal
// =============================================================================

func TestModal_Header(t *testing.T) {
	listing := domain.ListingSummary{Address: "123 Bay St", Meta: "3 bd • 2 ba", ImageURL: "https://img/1.jpg"}

	tests := []struct {
		name        string
		payload     domain.ModalPayload
		wantHeader  string
		wantListing *domain.ListingSummary
	}{
		{
			name:        "schedule with listing",
			payload:     domain.SchedulePayload(listing),
			wantHeader:  "Tour request",
			wantListing: &listing,
		},
		{
			name:        "valuation",
			payload:     domain.ValuationPayload(),
			wantHeader:  "Property info",
			wantListing: nil,
		},
		{
			name:        "info with listing",
			payload:     domain.InfoPayload(listing),
			wantHeader:  "Property info",
			wantListing: &listing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModal(tt.payload, "")
			assert.Equal(t, tt.wantHeader, m.Header())
			assert.Equal(t, tt.wantListing, m.Listing())
		})
	}
}

func TestModal_Submit(t *testing.T) {
	sink := &recordingSink{}
	listing := domain.ListingSummary{Address: "9 Gulf Dr", Meta: "Condo"}
	m := NewModal(domain.SchedulePayload(listing), domain.NewLeadKey())

	require.NoError(t, m.SetEmail("buyer@example.com"))
	require.NoError(t, m.Submit(context.Background(), sink))

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.LeadSourceModal, calls[0].Source)
	assert.Equal(t, "buyer@example.com", calls[0].Email)
	require.NotNil(t, calls[0].Payload)
	assert.Equal(t, domain.ModalKindSchedule, calls[0].Payload.Kind)
	assert.Equal(t, "9 Gulf Dr", calls[0].Payload.Listing.Address)
	assert.True(t, m.Submitted())

	assert.ErrorIs(t, m.Submit(context.Background(), sink), ErrAlreadySubmitted)
	assert.Len(t, sink.calls(), 1)
}

func TestModal_EmptyEmailRejected(t *testing.T) {
	sink := &recordingSink{}
	m := NewModal(domain.ValuationPayload(), "")

	err := m.Submit(context.Background(), sink)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(FieldEmail))
	assert.Empty(t, sink.calls())
	assert.Equal(t, StateEditing, m.State())
}

// =============================================================================
// Newsletter
// =============================================================================

func TestNewsletter_Submit(t *testing.T) {
	sink := &recordingSink{}
	n := NewNewsletter("")

	var ve *domain.ValidationError
	require.ErrorAs(t, n.Submit(context.Background(), sink), &ve)

	require.NoError(t, n.SetEmail("reader@example.com"))
	require.NoError(t, n.Submit(context.Background(), sink))

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.LeadSourceNewsletter, calls[0].Source)
	assert.Equal(t, "reader@example.com", calls[0].Email)
	assert.Nil(t, calls[0].Payload)
}

// =============================================================================
// Shell
// =============================================================================

func TestShell_ToggleMenuTwice(t *testing.T) {
	s := ParseShell(url.Values{})
	assert.False(t, s.MenuOpen())
	original := s.Href()

	s.ToggleMenu()
	assert.True(t, s.MenuOpen())
	assert.Equal(t, "/?menu=open", s.Href())

	s.ToggleMenu()
	assert.False(t, s.MenuOpen())
	assert.Equal(t, original, s.Href())
}

func TestShell_CloseAndReopenResetsModal(t *testing.T) {
	sink := &recordingSink{}
	s := ParseShell(url.Values{})

	m := s.OpenModal(domain.ValuationPayload())
	require.NoError(t, m.SetEmail("seller@example.com"))
	require.NoError(t, m.Submit(context.Background(), sink))
	assert.True(t, s.Modal().Submitted())

	s.CloseModal()
	assert.False(t, s.ModalOpen())
	assert.Nil(t, s.Modal())

	reopened := s.OpenModal(domain.ValuationPayload())
	assert.Equal(t, "", reopened.Email())
	assert.False(t, reopened.Submitted())
	assert.NotEqual(t, m.Key(), reopened.Key())
}

func TestShell_OpenWhileOpenReplacesPayload(t *testing.T) {
	s := ParseShell(url.Values{})
	s.OpenModal(domain.ValuationPayload())

	listing := domain.ListingSummary{Address: "1 Main St"}
	s.OpenModal(domain.SchedulePayload(listing))

	require.True(t, s.ModalOpen())
	assert.Equal(t, "Tour request", s.Modal().Header())
	assert.Equal(t, "1 Main St", s.Modal().Listing().Address)
}

func TestParseShell(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMenu   bool
		wantModal  bool
		wantHeader string
		wantHref   string
	}{
		{name: "default", query: "", wantHref: "/"},
		{name: "menu open", query: "menu=open", wantMenu: true, wantHref: "/?menu=open"},
		{name: "menu garbage", query: "menu=yes", wantHref: "/"},
		{
			name:       "valuation modal",
			query:      "modal=valuation",
			wantModal:  true,
			wantHeader: "Property info",
			wantHref:   "/?modal=valuation",
		},
		{
			name:       "schedule modal with listing",
			query:      "modal=schedule&address=12+Oak+Ln&meta=3bd",
			wantModal:  true,
			wantHeader: "Tour request",
			wantHref:   "/?address=12+Oak+Ln&meta=3bd&modal=schedule",
		},
		{name: "unknown modal ignored", query: "modal=buy", wantHref: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			s := ParseShell(q)
			assert.Equal(t, tt.wantMenu, s.MenuOpen())
			assert.Equal(t, tt.wantModal, s.ModalOpen())
			if tt.wantModal {
				assert.Equal(t, tt.wantHeader, s.Modal().Header())
			}
			assert.Equal(t, tt.wantHref, s.Href())
		})
	}
}

func TestShell_NoJSLinks(t *testing.T) {
	s := ParseShell(url.Values{ParamMenu: {MenuOpen}, ParamModal: {"valuation"}})
	assert.Equal(t, "/?modal=valuation", s.MenuToggleHref())
	assert.Equal(t, "/?menu=open", s.ModalCloseHref())
}

func TestModalHref_MatchesOpenShell(t *testing.T) {
	payload := domain.InfoPayload(domain.ListingSummary{Address: "5 Pier", Meta: "2 ba"})

	var s Shell
	s.OpenModal(payload)

	assert.Equal(t, s.Href(), ModalHref(payload))
	assert.Equal(t, "/?modal=valuation", ModalHref(domain.ValuationPayload()))
}

// =============================================================================
// Binding
// =============================================================================

func TestParseModalPayload(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		want      domain.ModalPayload
		wantError bool
	}{
		{
			name:   "valuation drops listing",
			values: url.Values{ParamKind: {"valuation"}, ParamAddress: {"x"}},
			want:   domain.ValuationPayload(),
		},
		{
			name:   "info without address has no listing",
			values: url.Values{ParamKind: {"info"}},
			want:   domain.ModalPayload{Kind: domain.ModalKindInfo},
		},
		{
			name:   "schedule with listing",
			values: url.Values{ParamKind: {"schedule"}, ParamAddress: {"5 Pier"}, ParamMeta: {"2 ba"}, ParamImage: {"https://img.example.com/a.jpg"}},
			want:   domain.SchedulePayload(domain.ListingSummary{Address: "5 Pier", Meta: "2 ba", ImageURL: "https://img.example.com/a.jpg"}),
		},
		{
			name:   "unsafe image dropped",
			values: url.Values{ParamKind: {"info"}, ParamAddress: {"5 Pier"}, ParamImage: {"javascript:alert(1)"}},
			want:   domain.InfoPayload(domain.ListingSummary{Address: "5 Pier"}),
		},
		{
			name:      "unknown kind",
			values:    url.Values{ParamKind: {"rent"}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModalPayload(tt.values)
			if tt.wantError {
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindContactForm(t *testing.T) {
	key := domain.NewLeadKey()
	f := BindContactForm(url.Values{
		KeyField:     {key},
		FieldName:    {"Hal"},
		FieldEmail:   {"hal@example.com"},
		FieldMessage: {"Hello"},
		"unexpected": {"ignored"},
	})

	assert.Equal(t, key, f.Key())
	assert.Equal(t, domain.LeadFormData{Name: "Hal", Email: "hal@example.com", Message: "Hello"}, f.Data())

	forged := BindContactForm(url.Values{KeyField: {"../../etc"}})
	assert.Equal(t, "", forged.Key())
}
