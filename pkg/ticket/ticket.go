// Package ticket parses destination tickets and collects the places a hand of
// tickets requires.
//
// A ticket is written "{place1} : {place2}". Each ticket adds both of its
// places to the required list; a place named by several tickets is listed
// once and its multiplicity is tracked for display.
package ticket

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Separator divides the two places of a ticket.
const Separator = " : "

var (
	// ErrMalformedTicket is returned for text that is not "{place} : {place}".
	ErrMalformedTicket = errors.New("ticket not written correctly")
	// ErrSamePlace is returned for a ticket whose two places are identical.
	ErrSamePlace = errors.New("ticket connects a place to itself")
	// ErrUnknownPlace is returned for a ticket naming a place not on the board.
	ErrUnknownPlace = errors.New("ticket names an unknown place")
)

// Ticket is a destination card connecting two places.
type Ticket struct {
	From string
	To   string
}

func (t Ticket) String() string {
	return t.From + Separator + t.To
}

// Parse reads a ticket. Surrounding whitespace is ignored.
func Parse(s string) (Ticket, error) {
	parts := strings.Split(strings.TrimSpace(s), Separator)
	if len(parts) != 2 {
		return Ticket{}, fmt.Errorf("%w: %q", ErrMalformedTicket, s)
	}
	t := Ticket{From: strings.TrimSpace(parts[0]), To: strings.TrimSpace(parts[1])}
	if t.From == "" || t.To == "" {
		return Ticket{}, fmt.Errorf("%w: %q", ErrMalformedTicket, s)
	}
	if t.From == t.To {
		return Ticket{}, fmt.Errorf("%w: %q", ErrSamePlace, s)
	}
	return t, nil
}

// Board reports which places exist. *graph.Graph satisfies it.
type Board interface {
	HasPlace(name string) bool
}

// Tier groups a place by how many tickets name it.
type Tier int

const (
	TierSingle Tier = iota + 1
	TierDouble
	TierMany
)

// TierOf returns the tier for a multiplicity.
func TierOf(n int) Tier {
	switch {
	case n <= 1:
		return TierSingle
	case n == 2:
		return TierDouble
	}
	return TierMany
}

func (t Tier) String() string {
	switch t {
	case TierSingle:
		return "single"
	case TierDouble:
		return "double"
	case TierMany:
		return "many"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Entry is one required place with its multiplicity.
type Entry struct {
	Place string
	Count int
	Tier  Tier
}

// Hand accumulates tickets. It is not safe for concurrent use.
type Hand struct {
	board   Board
	tickets []Ticket
	order   []string
	count   map[string]int
}

// NewHand creates an empty hand validated against board.
func NewHand(board Board) *Hand {
	return &Hand{board: board, count: make(map[string]int)}
}

// Add parses and adds a ticket.
func (h *Hand) Add(s string) (Ticket, error) {
	t, err := Parse(s)
	if err != nil {
		return Ticket{}, err
	}
	if err := h.AddTicket(t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// AddTicket adds a parsed ticket. Both places are checked before either is
// recorded, so a rejected ticket leaves the hand unchanged.
func (h *Hand) AddTicket(t Ticket) error {
	if t.From == t.To {
		return fmt.Errorf("%w: %q", ErrSamePlace, t.String())
	}
	for _, p := range []string{t.From, t.To} {
		if !h.board.HasPlace(p) {
			return fmt.Errorf("%w: %q", ErrUnknownPlace, p)
		}
	}
	h.tickets = append(h.tickets, t)
	h.addPlace(t.From)
	h.addPlace(t.To)
	return nil
}

func (h *Hand) addPlace(p string) {
	if h.count[p] == 0 {
		h.order = append(h.order, p)
	}
	h.count[p]++
}

// Tickets returns the accepted tickets in order.
func (h *Hand) Tickets() []Ticket {
	return append([]Ticket(nil), h.tickets...)
}

// Required returns each named place once, in first-seen order.
func (h *Hand) Required() []string {
	return append([]string(nil), h.order...)
}

// Multiplicity returns how many tickets name place.
func (h *Hand) Multiplicity(place string) int {
	return h.count[place]
}

// Entries returns the required places with their multiplicity.
func (h *Hand) Entries() []Entry {
	out := make([]Entry, len(h.order))
	for i, p := range h.order {
		n := h.count[p]
		out[i] = Entry{Place: p, Count: n, Tier: TierOf(n)}
	}
	return out
}

// ReadHand reads one ticket per line. Blank lines and lines starting with '#'
// are skipped; the first bad line fails the whole read.
func ReadHand(r io.Reader, board Board) (*Hand, error) {
	h := NewHand(board)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if _, err := h.Add(text); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tickets: %w", err)
	}
	return h, nil
}
