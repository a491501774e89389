package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	fakeUsername = "jane@example.com"
	fakePassword = "hunter2"
	fakeToken    = "CfDJ8-test-token"
	fakeCookie   = "ASP.NET_SessionId"

	fakeConflictMessage = "You already have a booking at this time"
)

type fakeRow struct {
	location string
	date     string
	time     string
	spaces   string
	action   string
	id       int
}

type fakeSession struct {
	filter   FilterState
	category string
	activity string
	basket   []int
}

// fakePortal imitates the portal's server-side session: it remembers the filter selection per
// cookie, refuses filter steps issued out of order and redirects unknown cookies to the login
// page.
type fakePortal struct {
	server *httptest.Server

	mu         sync.Mutex
	sessions   map[string]*fakeSession
	timetables map[string][]fakeRow
	held       map[int]bool

	logins     int
	confirmed  int
	violations int
	requests   []string

	hideToken    bool
	loginStatus  int
	failPath     string
	slowPath     string
	slowFor      time.Duration
	bookingsPage string
	profilePage  string
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		sessions:   map[string]*fakeSession{},
		timetables: map[string][]fakeRow{},
		held:       map[int]bool{},
	}

	anyState := []FilterState{
		FilterUnfiltered,
		FilterClubSelected,
		FilterCategorySelected,
		FilterActivitySelected,
		FilterTimetableReady,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /enterprise/account/login", p.handleLoginPage)
	mux.HandleFunc("POST /enterprise/account/login", p.handleLogin)
	mux.HandleFunc("POST /enterprise/bookingscentre/behaviours", p.filterStep(
		anyState, FilterClubSelected,
		func(fs *fakeSession, form url.Values) bool {
			fs.category = ""
			fs.activity = ""
			return form.Get("club") == clubId
		},
	))
	mux.HandleFunc("POST /enterprise/bookingscentre/activities", p.filterStep(
		[]FilterState{FilterClubSelected}, FilterCategorySelected,
		func(fs *fakeSession, form url.Values) bool {
			fs.category = form.Get("behaviours")
			return form.Get("bookingType") == "0"
		},
	))
	mux.HandleFunc("POST /enterprise/bookingscentre/activitySelect", p.filterStep(
		[]FilterState{FilterCategorySelected}, FilterActivitySelected,
		func(fs *fakeSession, form url.Values) bool {
			fs.activity = form.Get("activity")
			return true
		},
	))
	mux.HandleFunc("GET /enterprise/bookingscentre/TimeTable", p.handleTimetable)
	mux.HandleFunc("GET /enterprise/BookingsCentre/AddBooking", p.handleAddBooking)
	mux.HandleFunc("GET /enterprise/Basket/Pay", p.handlePay)
	mux.HandleFunc("GET /enterprise/basket/paymentconfirmed", p.handlePaymentConfirmed)
	mux.HandleFunc("GET /enterprise/BookingsCentre/MyBookings", p.page(func() string { return p.bookingsPage }))
	mux.HandleFunc("GET /enterprise/Account/CSC", p.page(func() string { return p.profilePage }))

	p.server = httptest.NewServer(p.slow(mux))
	t.Cleanup(p.server.Close)
	return p
}

// slow holds requests to slowPath for slowFor, or until the client gives up on them.
func (p *fakePortal) slow(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		path, delay := p.slowPath, p.slowFor
		p.mu.Unlock()

		if path != "" && strings.HasSuffix(r.URL.Path, path) {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (p *fakePortal) baseUrl() string {
	return p.server.URL + "/enterprise"
}

func (p *fakePortal) setTimetable(category, activity int, rows ...fakeRow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timetables[fmt.Sprintf("%d/%d", category, activity)] = rows
}

// set changes the portal's behaviour between requests.
func (p *fakePortal) set(change func(p *fakePortal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	change(p)
}

// expireSessions logs every client out on the server side.
func (p *fakePortal) expireSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = map[string]*fakeSession{}
}

func (p *fakePortal) stats() (logins, confirmed, violations int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins, p.confirmed, p.violations
}

func (p *fakePortal) requestLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.requests)
}

// session must be called with p.mu held, it redirects to the login page when it returns nil.
func (p *fakePortal) session(w http.ResponseWriter, r *http.Request) *fakeSession {
	p.requests = append(p.requests, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/enterprise"))

	cookie, err := r.Cookie(fakeCookie)
	if err == nil {
		if fs, ok := p.sessions[cookie.Value]; ok {
			return fs
		}
	}
	http.Redirect(w, r, "/enterprise/account/login?ReturnUrl="+url.QueryEscape(r.URL.Path), http.StatusFound)
	return nil
}

const fakeLoginForm = `<html><body>
<form action="/enterprise/account/login" method="post">
	<input name="__RequestVerificationToken" type="hidden" value="%s" />
	<input name="login.Email" type="text" />
	<input name="login.Password" type="password" />
</form>
</body></html>`

func (p *fakePortal) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loginStatus != 0 {
		w.WriteHeader(p.loginStatus)
		return
	}
	if p.hideToken {
		fmt.Fprint(w, `<html><body><h1>Down for maintenance</h1></body></html>`)
		return
	}
	fmt.Fprintf(w, fakeLoginForm, fakeToken)
}

func (p *fakePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("__RequestVerificationToken") != fakeToken ||
		r.PostForm.Get("login.Email") != fakeUsername ||
		r.PostForm.Get("login.Password") != fakePassword {
		fmt.Fprintf(w, fakeLoginForm, fakeToken)
		return
	}

	p.logins++
	id := fmt.Sprintf("session-%d", p.logins)
	p.sessions[id] = &fakeSession{}
	http.SetCookie(w, &http.Cookie{Name: fakeCookie, Value: id, Path: "/"})
	http.Redirect(w, r, "/enterprise/", http.StatusFound)
}

func (p *fakePortal) filterStep(
	from []FilterState,
	to FilterState,
	apply func(fs *fakeSession, form url.Values) bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		fs := p.session(w, r)
		if fs == nil {
			return
		}
		if strings.HasSuffix(r.URL.Path, p.failPath) && p.failPath != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" ||
			!slices.Contains(from, fs.filter) ||
			!apply(fs, r.PostForm) {
			p.violations++
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fs.filter = to
	}
}

func (p *fakePortal) handleTimetable(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs := p.session(w, r)
	if fs == nil {
		return
	}
	if strings.HasSuffix(r.URL.Path, p.failPath) && p.failPath != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if fs.filter != FilterActivitySelected && fs.filter != FilterTimetableReady {
		p.violations++
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	fs.filter = FilterTimetableReady

	var out strings.Builder
	out.WriteString(`<html><body><table id="timetable">`)
	out.WriteString(`<tr class="titleRow"><th>Location</th><th>Day</th><th>Date</th><th>Time</th><th>Spaces</th><th></th></tr>`)
	for _, row := range p.timetables[fs.category+"/"+fs.activity] {
		fmt.Fprintf(
			&out,
			`<tr><td>%s</td><td>Day</td><td>%s</td><td>%s</td><td>%s</td><td><a href="#" onclick="addBooking(%d)">%s</a></td></tr>`,
			row.location, row.date, row.time, row.spaces, row.id, row.action,
		)
	}
	out.WriteString(`</table></body></html>`)
	fmt.Fprint(w, out.String())
}

func (p *fakePortal) known(id int) bool {
	for _, rows := range p.timetables {
		for _, row := range rows {
			if row.id == id {
				return true
			}
		}
	}
	return false
}

func (p *fakePortal) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs := p.session(w, r)
	if fs == nil {
		return
	}

	id, err := strconv.Atoi(r.URL.Query().Get("booking"))
	res := addBookingResponse{Success: true, Message: "Added to basket"}
	switch {
	case err != nil || !p.known(id):
		res = addBookingResponse{Message: "This session is no longer available"}
	case p.held[id] || slices.Contains(fs.basket, id):
		res = addBookingResponse{Message: fakeConflictMessage}
	default:
		fs.basket = append(fs.basket, id)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (p *fakePortal) handlePay(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs := p.session(w, r)
	if fs == nil {
		return
	}
	if len(fs.basket) == 0 {
		fmt.Fprint(w, `<html><body><p>Your basket is empty.</p></body></html>`)
		return
	}
	http.Redirect(w, r, "/enterprise/basket/paymentconfirmed", http.StatusFound)
}

func (p *fakePortal) handlePaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs := p.session(w, r)
	if fs == nil {
		return
	}
	for _, id := range fs.basket {
		p.held[id] = true
	}
	fs.basket = nil
	p.confirmed++
	fmt.Fprint(w, `<html><body><p>Thank you for your payment.</p></body></html>`)
}

func (p *fakePortal) page(body func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.session(w, r) == nil {
			return
		}
		fmt.Fprint(w, body())
	}
}
