package listing

// LoadThreshold is the scroll position, as a fraction of the scrollable
// distance, at which the next page is requested.
const LoadThreshold = 0.8

// ScrollPercentage returns scrollTop / (documentHeight - viewportHeight), or 0
// when the document fits in the viewport.
func ScrollPercentage(scrollTop, viewportHeight, documentHeight float64) float64 {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	return scrollTop / scrollable
}

// ShouldLoad reports whether the geometry has reached LoadThreshold.
func ShouldLoad(scrollTop, viewportHeight, documentHeight float64) bool {
	return ScrollPercentage(scrollTop, viewportHeight, documentHeight) >= LoadThreshold
}
