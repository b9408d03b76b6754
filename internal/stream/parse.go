package stream

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// Positions inside the caret-delimited payload of a framed tick.
const (
	fieldTicker     = 0
	fieldPrice      = 2
	fieldChangeRate = 5
	fieldVolume     = 12
	minFieldCount   = 13
)

// parseTick decodes one wire frame into a tick. Two encodings appear on the
// feed: a JSON object, and a pipe-delimited frame whose fourth segment is a
// caret-separated field list. Anything else is an error; the caller drops
// the frame.
func parseTick(raw []byte, now time.Time) (types.Tick, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return types.Tick{}, errors.New(errors.ErrCodeFrameDiscarded, "empty frame")
	}

	if strings.HasPrefix(text, "{") {
		return parseJSONTick(text, now)
	}

	return parseFramedTick(text, now)
}

func parseJSONTick(text string, now time.Time) (types.Tick, error) {
	var payload struct {
		Ticker     string  `json:"ticker"`
		Price      int64   `json:"current_price"`
		Volume     int64   `json:"volume"`
		ChangeRate float64 `json:"change_rate"`
	}

	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeFrameDiscarded, "malformed json frame", err)
	}

	if payload.Ticker == "" {
		return types.Tick{}, errors.New(errors.ErrCodeFrameDiscarded, "json frame without ticker")
	}

	return types.Tick{
		Ticker:     payload.Ticker,
		Price:      payload.Price,
		Volume:     payload.Volume,
		ChangeRate: payload.ChangeRate,
		ReceivedAt: now,
	}, nil
}

func parseFramedTick(text string, now time.Time) (types.Tick, error) {
	segments := strings.Split(text, "|")
	if len(segments) < 4 {
		return types.Tick{}, errors.New(errors.ErrCodeFrameDiscarded, "framed tick with too few segments")
	}

	fields := strings.Split(segments[3], "^")
	if len(fields) < minFieldCount {
		return types.Tick{}, errors.New(errors.ErrCodeFrameDiscarded, "framed tick with too few fields")
	}

	ticker := strings.TrimSpace(fields[fieldTicker])
	if ticker == "" {
		return types.Tick{}, errors.New(errors.ErrCodeFrameDiscarded, "framed tick without ticker")
	}

	price, err := strconv.ParseInt(strings.TrimSpace(fields[fieldPrice]), 10, 64)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeFrameDiscarded, "unparseable price field", err)
	}

	changeRate, err := strconv.ParseFloat(strings.TrimSpace(fields[fieldChangeRate]), 64)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeFrameDiscarded, "unparseable change rate field", err)
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(fields[fieldVolume]), 10, 64)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeFrameDiscarded, "unparseable volume field", err)
	}

	return types.Tick{
		Ticker:     ticker,
		Price:      price,
		Volume:     volume,
		ChangeRate: changeRate,
		ReceivedAt: now,
	}, nil
}
