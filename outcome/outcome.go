// Package outcome enumerates the DLC outcome set for an event: every
// ordered k-permutation of the entry indices plus the special
// "refund-all" outcome.
package outcome

import "encoding/binary"

// Enumerate returns all ordered k-permutations of {0, ..., n-1} in
// lexicographic order on the index tuples, followed by the refund
// outcome [0, 1, ..., n-1]. The order is canonical: announcements and
// attestations index into it by position.
//
// len(Enumerate(n, k)) == Count(n, k).
func Enumerate(n, k int) [][]int {
	if n <= 0 || k <= 0 || k > n {
		return [][]int{refund(n)}
	}

	out := make([][]int, 0, Count(n, k))
	used := make([]bool, n)
	combo := make([]int, k)

	var recurse func(depth int)
	recurse = func(depth int) {
		if depth == k {
			perm := make([]int, k)
			copy(perm, combo)
			out = append(out, perm)
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			combo[depth] = i
			recurse(depth + 1)
			used[i] = false
		}
	}
	recurse(0)

	out = append(out, refund(n))
	return out
}

func refund(n int) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	return all
}

// Count returns |P(n,k)| + 1, the exact length Enumerate(n, k) produces.
func Count(n, k int) int {
	if n <= 0 || k <= 0 || k > n {
		return 1
	}
	count := 1
	for i := 0; i < k; i++ {
		count *= n - i
	}
	return count + 1
}

// EncodeMessage concatenates the big-endian fixed-width (8-byte, the
// platform word size) encoding of each index in outcome, producing the
// bytestring hashed into the outcome's locking point.
func EncodeMessage(indices []int) []byte {
	buf := make([]byte, 8*len(indices))
	for i, idx := range indices {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(idx))
	}
	return buf
}

// IndexOf returns the position of outcome within Enumerate(n, k)'s
// canonical order, or -1 if outcome does not appear. Used to validate
// that a computed winners tuple corresponds to a published locking
// point.
func IndexOf(n, k int, target []int) int {
	for i, o := range Enumerate(n, k) {
		if equal(o, target) {
			return i
		}
	}
	return -1
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
