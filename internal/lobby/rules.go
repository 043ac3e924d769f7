package lobby

import (
	"time"
	"unicode"
)

// Points scores a correct guess made with remaining of duration left.
func Points(remaining, duration time.Duration) int {
	if duration <= 0 {
		return 1
	}

	switch frac := remaining.Seconds() / duration.Seconds(); {
	case frac >= 0.8:
		return 3
	case frac >= 0.4:
		return 2
	}

	return 1
}

// DrawerBonus is added to the drawer's score for every correct guess.
const DrawerBonus = 1

// longWord is the rune count from which time reveals may uncover two letters.
const longWord = 9

// timeRevealCount is how many letters the time reveal at stage (1 at 25%
// elapsed, 2 at 50%, 3 at 75%) uncovers.
func timeRevealCount(stage, length int, anyoneGuessed bool) int {
	switch stage {
	case 1:
		return 1
	case 2:
		if length >= longWord && !anyoneGuessed {
			return 2
		}
		return 1
	case 3:
		if length >= longWord {
			return 2
		}
		return 1
	}

	return 0
}

// guessRevealStage maps the share of guessers who have solved the prompt to
// a reveal stage: 1 from 40%, 2 from 70%.
func guessRevealStage(correct, guessers int) int {
	if guessers <= 0 {
		return 0
	}

	switch ratio := float64(correct) / float64(guessers); {
	case ratio >= 0.7:
		return 2
	case ratio >= 0.4:
		return 1
	}

	return 0
}

// pickLetters chooses up to n hidden letter positions of word, never more
// than limit revealed in total, and marks them in revealed. It returns how
// many were added.
func pickLetters(word string, revealed map[int]bool, n, limit int, intn func(int) int) int {
	if room := limit - len(revealed); n > room {
		n = room
	}

	var hidden []int
	for i, r := range []rune(word) {
		if unicode.IsLetter(r) && !revealed[i] {
			hidden = append(hidden, i)
		}
	}

	added := 0
	for ; added < n && len(hidden) > 0; added++ {
		j := intn(len(hidden))
		revealed[hidden[j]] = true
		hidden = append(hidden[:j], hidden[j+1:]...)
	}

	return added
}
