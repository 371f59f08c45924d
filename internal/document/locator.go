package document

// Locator extracts session-mode source from one structural shape of
// document element. ok is false when node does not have that shape.
type Locator[N any] interface {
	Locate(node N) (source string, ok bool)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc[N any] func(node N) (string, bool)

// Locate implements Locator.
func (f LocatorFunc[N]) Locate(node N) (string, bool) {
	return f(node)
}

// firstMatch tries each locator in order.
func firstMatch[N any](node N, locators ...Locator[N]) (string, bool) {
	for _, l := range locators {
		if src, ok := l.Locate(node); ok {
			return src, true
		}
	}
	return "", false
}
