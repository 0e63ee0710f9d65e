package positioning

import "sync"

// DefaultWindow is the number of samples averaged per key.
const DefaultWindow = 5

// Smoother keeps a moving average of the most recent samples per key.
type Smoother struct {
	window  int
	mu      sync.Mutex
	samples map[string][]float64
}

// NewSmoother creates a smoother; a window below 1 uses DefaultWindow.
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = DefaultWindow
	}
	return &Smoother{
		window:  window,
		samples: make(map[string][]float64),
	}
}

// Add records a sample for key, evicting the oldest beyond the window.
func (s *Smoother) Add(key string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.samples[key], v)
	if len(buf) > s.window {
		buf = buf[len(buf)-s.window:]
	}
	s.samples[key] = buf
}

// Average returns the mean of the retained samples for key.
func (s *Smoother) Average(key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.samples[key]
	if len(buf) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range buf {
		sum += v
	}
	return sum / float64(len(buf)), true
}

// Reset drops all samples.
func (s *Smoother) Reset() {
	s.mu.Lock()
	s.samples = make(map[string][]float64)
	s.mu.Unlock()
}
