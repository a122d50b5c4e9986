/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

const (
	borderCorrect   = "green"
	borderIncorrect = "red"
)

// ReviewFrame is one replayed round.
type ReviewFrame struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	Left        ImageRef `json:"left"`
	Right       ImageRef `json:"right"`
	AISide      string   `json:"ai_side"`
	Picked      string   `json:"picked"`
	LeftBorder  string   `json:"left_border,omitempty"`
	RightBorder string   `json:"right_border,omitempty"`
	LeftHover   string   `json:"left_hover"`
	RightHover  string   `json:"right_hover"`
	Progress    float64  `json:"progress"`
}

// ReviewPlayer is a click-to-advance cursor over a finished game's history.
type ReviewPlayer struct {
	meta    *Metadata
	history []RoundRecord
	cursor  int
}

func NewReviewPlayer(meta *Metadata, history []RoundRecord) *ReviewPlayer {
	if meta == nil {
		meta = NewMetadata(nil, nil)
	}

	return &ReviewPlayer{meta: meta, history: history}
}

// Frame returns the frame under the cursor, or false once the cursor has
// run off the end of the history.
func (r *ReviewPlayer) Frame() (ReviewFrame, bool) {
	if r.Done() {
		return ReviewFrame{}, false
	}

	rec := r.history[r.cursor]

	frame := ReviewFrame{
		Index:    r.cursor,
		Total:    len(r.history),
		Left:     rec.Left,
		Right:    rec.Right,
		AISide:   rec.AISide.String(),
		Picked:   rec.UserSelected.String(),
		Progress: float64(r.cursor) / float64(len(r.history)) * 100,
	}

	aiHover := r.meta.AILabel(rec.AIIndex)
	realHover := r.meta.RealLabel(rec.RealIndex)

	if rec.AISide == Left {
		frame.LeftHover, frame.RightHover = aiHover, realHover
	} else {
		frame.LeftHover, frame.RightHover = realHover, aiHover
	}

	border := borderIncorrect
	if rec.WasCorrect {
		border = borderCorrect
	}

	if rec.UserSelected == Left {
		frame.LeftBorder = border
	} else {
		frame.RightBorder = border
	}

	return frame, true
}

// Next advances the cursor and returns the new frame; false means the
// review is over.
func (r *ReviewPlayer) Next() (ReviewFrame, bool) {
	if !r.Done() {
		r.cursor++
	}

	return r.Frame()
}

func (r *ReviewPlayer) Done() bool {
	return r.cursor >= len(r.history)
}
