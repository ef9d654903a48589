package pricing

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

const shekelsPerDollar = 3.7

var categoryBaseShekels = map[string]float64{
	"Starters":  32,
	"Breakfast": 48,
	"Lunch":     68,
	"Supper":    89,
	"Desserts":  28,
	"Beverages": 18,
}

const defaultBaseShekels = 35

type keywordBump struct {
	word   string
	amount float64
}

// Bumps apply additively, once per keyword present.
var keywordBumps = []keywordBump{
	{"salmon", 25},
	{"beef", 30},
	{"steak", 40},
	{"shrimp", 20},
	{"seafood", 25},
	{"truffle", 35},
	{"cheese", 10},
	{"avocado", 8},
	{"organic", 15},
	{"special", 10},
	{"premium", 20},
	{"wellington", 45},
}

var sizeWords = []string{"large", "extra", "double"}

const sizeMultiplier = 1.3

var psychologicalEndings = [4]float64{0.49, 0.79, 0.89, 0.99}

// Estimator suggests a USD menu price from a category, a description and a name.
type Estimator struct {
	rand RandomSource
}

// NewEstimator returns an estimator drawing from src. A nil src gets a
// private time-seeded PCG source safe for concurrent use.
func NewEstimator(src RandomSource) *Estimator {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = &lockedSource{r: rand.New(rand.NewPCG(seed, seed>>17|1))}
	}
	return &Estimator{rand: src}
}

// Estimate never fails. Unknown categories fall back to the default base.
// Exactly two values are drawn from the source on every call: the jitter
// factor first, then the price ending.
func (e *Estimator) Estimate(category, description, name string) float64 {
	price, ok := categoryBaseShekels[category]
	if !ok {
		price = defaultBaseShekels
	}

	text := strings.ToLower(description + " " + name)
	for _, kw := range keywordBumps {
		if strings.Contains(text, kw.word) {
			price += kw.amount
		}
	}
	for _, w := range sizeWords {
		if strings.Contains(text, w) {
			price *= sizeMultiplier
			break
		}
	}

	usd := price / shekelsPerDollar
	usd *= 0.9 + e.rand.Float64()*0.2

	idx := int(math.Floor(e.rand.Float64() * float64(len(psychologicalEndings))))
	if idx >= len(psychologicalEndings) {
		idx = len(psychologicalEndings) - 1
	}
	if usd < 10 {
		usd = math.Floor(usd) + psychologicalEndings[idx]
	} else {
		usd = math.Floor(usd) + 0.99
	}
	return math.Round(usd*100) / 100
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
