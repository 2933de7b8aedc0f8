package game

import "math/rand"

// JoinCodeLength is the fixed length of a human-typable join code.
const JoinCodeLength = 6

const joinCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateJoinCode rolls a lowercase alphanumeric code. Uniqueness among
// live sessions is the caller's responsibility.
func generateJoinCode(rng *rand.Rand) string {
	b := make([]byte, JoinCodeLength)
	for i := range b {
		b[i] = joinCodeAlphabet[rng.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}
