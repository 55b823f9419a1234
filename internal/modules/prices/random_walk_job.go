package prices

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Random is a uniform [0, 1) source.
type Random interface {
	Float64() float64
}

// DefaultMaxStep bounds a single random-walk move to ±0.5%.
var DefaultMaxStep = decimal.RequireFromString("0.005")

// RandomWalkJob nudges every quote by a bounded random percentage so the
// simulated market moves between trades.
type RandomWalkJob struct {
	oracle  *Oracle
	rand    Random
	maxStep decimal.Decimal
	log     zerolog.Logger
}

// NewRandomWalkJob creates the price simulation job.
func NewRandomWalkJob(oracle *Oracle, rnd Random, log zerolog.Logger) *RandomWalkJob {
	return &RandomWalkJob{
		oracle:  oracle,
		rand:    rnd,
		maxStep: DefaultMaxStep,
		log:     log.With().Str("job", "price_random_walk").Logger(),
	}
}

// Run moves each price by u*maxStep where u is uniform in [-1, 1).
func (j *RandomWalkJob) Run() error {
	one := decimal.NewFromInt(1)
	moved := 0

	for _, q := range j.oracle.All() {
		u := decimal.NewFromFloat(j.rand.Float64()*2 - 1)
		next := q.Price.Mul(one.Add(u.Mul(j.maxStep))).Round(8)
		if !next.IsPositive() {
			continue
		}
		if _, err := j.oracle.Set(q.Symbol, next, SourceSimulation); err != nil {
			j.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("Failed to move price")
			continue
		}
		moved++
	}

	j.log.Debug().Int("moved", moved).Msg("Random walk step completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RandomWalkJob) Name() string {
	return "price_random_walk"
}
