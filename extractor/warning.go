package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken is reported for an entry container whose id has no token.
	ErrNoToken = errors.New("extractor: entry id has no correlation token")

	// ErrNoLabel is reported for an entry with an empty identifier label.
	ErrNoLabel = errors.New("extractor: entry has no identifier label")
)

// Stage names the step at which an entry degraded.
type Stage string

const (
	StageEnumerate Stage = "enumerate"
	StageLabel     Stage = "label"
	StageShortText Stage = "short_text"
	StageExpand    Stage = "expand"
	StageFields    Stage = "fields"
	StageValidate  Stage = "validate"
)

// Warning records one entry that was located but not fully extracted.
// Warnings never abort a batch.
type Warning struct {
	ID    string
	Token string
	Stage Stage
	Err   error
}

func (w Warning) Error() string {
	who := w.ID
	if who == "" {
		who = "token " + w.Token
	}
	return fmt.Sprintf("extractor: %s: %s: %v", who, w.Stage, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }
