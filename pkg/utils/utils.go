package utils

import (
	"math/rand"
	"sort"
)

// RandomString returns a string of random alpha characters of the specified
// length. It is not suitable for secrets, only for throwaway fixtures.
func RandomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// IsInArray returns whether or not a string is in the given array of strings.
func IsInArray(s string, a []string) bool {
	for _, ss := range a {
		if s == ss {
			return true
		}
	}
	return false
}

// UniqueStrings returns a sorted copy of strs without duplicates nor empty
// strings.
func UniqueStrings(strs []string) []string {
	filtered := make([]string, 0, len(strs))
	for _, s := range strs {
		if s != "" && !IsInArray(s, filtered) {
			filtered = append(filtered, s)
		}
	}
	sort.Strings(filtered)
	return filtered
}
