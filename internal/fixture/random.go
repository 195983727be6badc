package fixture

import "math/rand"

const digits = "0123456789"

// RandomDigits returns n random decimal digits from the supplied source.
// Load scripts use it to randomize notice numbers and creditor ids while
// keeping fixtures deterministic by seed; every other fixture field stays
// byte-identical across calls with the same options.
func RandomDigits(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[r.Intn(len(digits))]
	}
	return string(b)
}

// RandomEventID returns a queue-safe lowercase alphanumeric id of length n,
// mirroring the id charset the load scripts publish with.
func RandomEventID(r *rand.Rand, n int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[r.Intn(len(charset))]
	}
	return string(b)
}
