package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// CashKey holds the uninvested balance inside a positions map.
const CashKey = "CASH"

// NoTradeAction marks a snapshot that only carries positions forward.
const NoTradeAction = "no_trade"

// Positions maps a symbol, or CashKey, to a quantity.
type Positions map[string]float64

// Clone returns an independent copy; a nil map clones to an empty one.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Cash returns the CASH entry.
func (p Positions) Cash() float64 { return p[CashKey] }

// Holdings returns the non-cash entries with a positive quantity.
func (p Positions) Holdings() Positions {
	out := Positions{}
	for k, v := range p {
		if k != CashKey && v > 0 {
			out[k] = v
		}
	}
	return out
}

// Symbols lists the non-cash keys in sorted order.
func (p Positions) Symbols() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		if k != CashKey {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON writes symbols in sorted order followed by CASH.
func (p Positions) MarshalJSON() ([]byte, error) {
	order := p.Symbols()
	if _, ok := p[CashKey]; ok {
		order = append(order, CashKey)
	}
	return marshalPositions(order, p)
}

func marshalPositions(order []string, p Positions) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		num, err := formatQuantity(p[k])
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", k, err)
		}
		buf.WriteString(num)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// formatQuantity renders whole numbers with a trailing ".0" so that
// quantities read back as floats by every consumer of the file.
func formatQuantity(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", errors.New("quantity is not a finite number")
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64), nil
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

// Action describes what the decision loop did in a session.
type Action struct {
	Action string  `json:"action"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// NoTrade is the action recorded when nothing was traded.
func NoTrade() *Action {
	return &Action{Action: NoTradeAction}
}

// Snapshot is one ledger line.
type Snapshot struct {
	Date      string
	ID        int
	Action    *Action
	Positions Positions

	// raw keeps the positions object exactly as read so that carrying it
	// forward rewrites the same bytes.
	raw json.RawMessage
}

type snapshotJSON struct {
	Date      string          `json:"date"`
	ID        *float64        `json:"id"`
	Action    *Action         `json:"this_action,omitempty"`
	Positions json.RawMessage `json:"positions"`
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var aux snapshotJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Date = aux.Date
	s.ID = -1
	if aux.ID != nil {
		s.ID = int(*aux.ID)
	}
	s.Action = aux.Action
	s.Positions = Positions{}
	s.raw = nil
	if len(aux.Positions) > 0 && !bytes.Equal(bytes.TrimSpace(aux.Positions), []byte("null")) {
		if err := json.Unmarshal(aux.Positions, &s.Positions); err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		if s.Positions == nil {
			s.Positions = Positions{}
		}
		s.raw = append(json.RawMessage(nil), bytes.TrimSpace(aux.Positions)...)
	}
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	positions := s.raw
	if positions == nil {
		var err error
		if positions, err = s.Positions.MarshalJSON(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	date, err := json.Marshal(s.Date)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"date":`)
	buf.Write(date)
	buf.WriteString(`,"id":`)
	buf.WriteString(strconv.Itoa(s.ID))
	if s.Action != nil {
		action, err := json.Marshal(s.Action)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"this_action":`)
		buf.Write(action)
	}
	buf.WriteString(`,"positions":`)
	buf.Write(positions)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
