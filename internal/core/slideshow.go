package core

import "time"

var defaultSlide = Slide{
	Title:    "Premium Image Library",
	Subtitle: "Discover a curated collection of premium visuals from talented photographers worldwide.",
}

// Slideshow is the hero carousel state of the index page.
type Slideshow struct {
	Slides   []Slide
	Current  int
	Interval time.Duration
}

// NewSlideshow falls back to a single default slide when none are configured
func NewSlideshow(config SlideshowConfig) *Slideshow {
	slides := append([]Slide(nil), config.Slides...)
	if len(slides) == 0 {
		slides = []Slide{defaultSlide}
	}
	interval := config.Interval
	if interval <= 0 {
		interval = defaultSlideInterval
	}
	return &Slideshow{Slides: slides, Interval: interval}
}

// GoTo moves to index. Out of range indexes are ignored.
func (s *Slideshow) GoTo(index int) {
	if index < 0 || index >= len(s.Slides) {
		return
	}
	s.Current = index
}

func (s *Slideshow) Next() {
	if len(s.Slides) == 0 {
		return
	}
	s.Current = (s.Current + 1) % len(s.Slides)
}

// Rotates reports whether the carousel should advance automatically
func (s *Slideshow) Rotates() bool {
	return len(s.Slides) > 1
}

func (s *Slideshow) Active() Slide {
	return s.Slides[s.Current]
}

// IntervalMillis is the auto-advance period for the page script
func (s *Slideshow) IntervalMillis() int64 {
	return s.Interval.Milliseconds()
}
