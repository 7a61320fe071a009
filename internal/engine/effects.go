package engine

import "github.com/abhisek/gradeval/internal/fieldpath"

// Effect is one field write applied to an input record. Index is the
// record's position in the evaluated collection and Seq orders effects
// within a run, starting at 1.
type Effect struct {
	Seq   int
	Index int
	Field fieldpath.Path
	Value any
}

type journal struct {
	effects []Effect
}

func (j *journal) reset() {
	j.effects = nil
}

func (j *journal) record(index int, p fieldpath.Path, v any) {
	j.effects = append(j.effects, Effect{
		Seq:   len(j.effects) + 1,
		Index: index,
		Field: p,
		Value: v,
	})
}

func (j *journal) list() []Effect {
	return append([]Effect(nil), j.effects...)
}
