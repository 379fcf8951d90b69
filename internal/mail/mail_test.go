package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/quotedprintable"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-report/internal/db"
	"github.com/ziadkadry99/auto-report/internal/report"
)

var _ report.Mailer = (*Outbox)(nil)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func testMessage() Message {
	return Message{
		Subject:    "Q1 Results",
		Recipients: []string{"team@example.com"},
		Senders:    []string{"reports@example.com"},
		Body:       "<table class=\"report\"></table>",
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	d := &Delivery{Message: testMessage()}
	require.NoError(t, store.Create(ctx, d))
	require.NotEmpty(t, d.ID)

	got, err := store.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "Q1 Results", got.Subject)
	assert.Equal(t, []string{"team@example.com"}, got.Recipients)
	assert.Equal(t, []string{"reports@example.com"}, got.Senders)
	assert.Zero(t, got.Attempts)
	assert.Nil(t, got.SentAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreMarkSentAndFailed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := &Delivery{ID: "a", Message: testMessage()}
	b := &Delivery{ID: "b", Message: testMessage()}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	require.NoError(t, store.MarkSent(ctx, "a"))
	require.NoError(t, store.MarkFailed(ctx, "b", errors.New("connection refused")))

	gotA, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, gotA.Status)
	assert.Equal(t, 1, gotA.Attempts)
	assert.NotNil(t, gotA.SentAt)

	gotB, err := store.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, gotB.Status)
	assert.Equal(t, "connection refused", gotB.Error)

	assert.ErrorIs(t, store.MarkSent(ctx, "nope"), ErrNotFound)
}

func TestStoreListAndPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "s1", "f1"} {
		require.NoError(t, store.Create(ctx, &Delivery{ID: id, Message: testMessage()}))
	}
	require.NoError(t, store.MarkSent(ctx, "s1"))
	require.NoError(t, store.MarkFailed(ctx, "f1", errors.New("boom")))

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sent, err := store.List(ctx, ListFilter{Status: []Status{StatusSent}})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "s1", sent[0].ID)

	pending, err := store.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	ids := []string{pending[0].ID, pending[1].ID}
	assert.ElementsMatch(t, []string{"p1", "f1"}, ids)

	limited, err := store.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreListQueryError(t *testing.T) {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	sqlMock.ExpectQuery("SELECT id, subject").
		WithArgs("pending", "failed").
		WillReturnError(errors.New("disk I/O error"))

	store := NewStore(db.Wrap(sqlDB))
	_, err = store.GetPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying deliveries")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestStoreCreateExecError(t *testing.T) {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	sqlMock.ExpectExec("INSERT INTO deliveries").
		WillReturnError(errors.New("database is locked"))

	store := NewStore(db.Wrap(sqlDB))
	err = store.Create(context.Background(), &Delivery{Message: testMessage()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestOutboxMailSends(t *testing.T) {
	store := setupTestStore(t)
	tr := new(mockTransport)
	tr.On("Send", mock.Anything, testMessage()).Return(nil).Once()

	outbox := NewOutbox(store, tr)
	msg := testMessage()
	err := outbox.Mail(context.Background(), msg.Subject, msg.Recipients, msg.Senders, msg.Body)
	require.NoError(t, err)
	tr.AssertExpectations(t)

	all, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StatusSent, all[0].Status)
}

func TestOutboxMailFailureIsRecorded(t *testing.T) {
	store := setupTestStore(t)
	tr := new(mockTransport)
	tr.On("Send", mock.Anything, mock.Anything).Return(errors.New("550 mailbox unavailable"))

	outbox := NewOutbox(store, tr)
	d, err := outbox.Enqueue(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 mailbox unavailable")
	require.NotNil(t, d)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, 1, d.Attempts)
}

func TestOutboxRequiresRecipients(t *testing.T) {
	outbox := NewOutbox(setupTestStore(t), new(mockTransport))
	err := outbox.Mail(context.Background(), "s", nil, nil, "body")
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestOutboxWithDocument(t *testing.T) {
	store := setupTestStore(t)
	var got Message
	tr := TransportFunc(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})

	outbox := NewOutbox(store, tr, WithDocument())
	_, err := outbox.Enqueue(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, got.Body, "<!DOCTYPE html>")
	assert.Contains(t, got.Body, "<title>Q1 Results</title>")
	assert.Contains(t, got.Body, `<table class="report">`)
}

func TestOutboxRetryPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	calls := 0
	flaky := TransportFunc(func(context.Context, Message) error {
		calls++
		if calls <= 2 {
			return errors.New("temporary failure")
		}
		return nil
	})
	outbox := NewOutbox(store, flaky)

	_, err := outbox.Enqueue(ctx, testMessage())
	require.Error(t, err)
	_, err = outbox.Enqueue(ctx, testMessage())
	require.Error(t, err)

	sent, failed, err := outbox.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, failed)

	pending, err := store.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRetrySentDelivery(t *testing.T) {
	store := setupTestStore(t)
	outbox := NewOutbox(store, TransportFunc(func(context.Context, Message) error { return nil }))

	d, err := outbox.Enqueue(context.Background(), testMessage())
	require.NoError(t, err)

	_, err = outbox.Retry(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrAlreadySent)

	_, err = outbox.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookTransport(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL, 0)
	require.NoError(t, tr.Send(context.Background(), testMessage()))
	assert.Equal(t, testMessage(), received)
}

func TestWebhookTransportErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhookTransport(srv.URL, 0).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSMTPTransportBuildsHTMLMessage(t *testing.T) {
	tr := NewSMTPTransport("smtp.example.com", 2525, "user", "pass", "fallback@example.com")

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	tr.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	require.NoError(t, tr.Send(context.Background(), testMessage()))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "reports@example.com", gotFrom)
	assert.Equal(t, []string{"team@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "Subject: Q1 Results\r\n")
	assert.Contains(t, gotMsg, "Content-Transfer-Encoding: quoted-printable\r\n")

	_, encoded, ok := strings.Cut(gotMsg, "\r\n\r\n")
	require.True(t, ok, "message has no header/body separator")
	body, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, testMessage().Body, string(body))
}

func TestSMTPMessageLinesStayShort(t *testing.T) {
	var rows strings.Builder
	rows.WriteString(`<table class="report">`)
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&rows, `<tr><td valign="top">row %d</td><td>%s</td></tr>`, i, strings.Repeat("x", 10))
	}
	rows.WriteString("</table>")
	msg := testMessage()
	msg.Body = rows.String()

	data, err := buildMIME("reports@example.com", msg)
	require.NoError(t, err)
	for i, line := range strings.Split(string(data), "\r\n") {
		assert.LessOrEqual(t, len(line), 998, "line %d is %d bytes", i, len(line))
	}
}

func TestSMTPRejectsHeaderInjection(t *testing.T) {
	tr := NewSMTPTransport("localhost", 25, "", "", "fallback@example.com")
	tr.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("message should not be sent")
		return nil
	}

	msg := testMessage()
	msg.Senders = []string{"reports@example.com", "other@example.com\r\nBcc: victim@example.com"}
	assert.Error(t, tr.Send(context.Background(), msg))

	msg = testMessage()
	msg.Recipients = []string{"team@example.com\nBcc: victim@example.com"}
	assert.Error(t, tr.Send(context.Background(), msg))
}

func TestSMTPTransportFallbackSender(t *testing.T) {
	tr := NewSMTPTransport("localhost", 25, "", "", "fallback@example.com")
	var gotFrom string
	tr.sendMail = func(_ string, a smtp.Auth, from string, _ []string, _ []byte) error {
		assert.Nil(t, a)
		gotFrom = from
		return nil
	}

	msg := testMessage()
	msg.Senders = nil
	require.NoError(t, tr.Send(context.Background(), msg))
	assert.Equal(t, "fallback@example.com", gotFrom)
}

func setupRouter(t *testing.T, tr Transport) (*chi.Mux, *Outbox) {
	t.Helper()
	outbox := NewOutbox(setupTestStore(t), tr)
	r := chi.NewRouter()
	RegisterRoutes(r, outbox)
	return r, outbox
}

func TestRoutes(t *testing.T) {
	fail := true
	tr := TransportFunc(func(context.Context, Message) error {
		if fail {
			return errors.New("offline")
		}
		return nil
	})
	router, outbox := setupRouter(t, tr)

	d, err := outbox.Enqueue(context.Background(), testMessage())
	require.Error(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/deliveries")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = get("/api/deliveries/pending")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = get("/api/deliveries?status=sent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = get("/api/deliveries/" + d.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, get("/api/deliveries/unknown").Code)

	post := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	rec = post("/api/deliveries/" + d.ID + "/retry")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	fail = false
	rec = post("/api/deliveries/" + d.ID + "/retry")
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	var retried Delivery
	require.NoError(t, json.Unmarshal(body, &retried))
	assert.Equal(t, StatusSent, retried.Status)
	assert.Equal(t, 3, retried.Attempts)

	assert.Equal(t, http.StatusConflict, post("/api/deliveries/"+d.ID+"/retry").Code)
	assert.Equal(t, http.StatusNotFound, post("/api/deliveries/unknown/retry").Code)
}
