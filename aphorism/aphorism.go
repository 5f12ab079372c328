// Package aphorism supplies bulletin text: one line at a time from a text
// file, in shuffled order, without repeats until every line has been used.
package aphorism

import (
	"bufio"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/juju/errors"
)

// Deck deals lines in random order and reshuffles when exhausted.
type Deck struct {
	lines []string
	order []int
	next  int
	rng   *rand.Rand
}

// Load reads non-blank lines from path. Lines starting with '#' are skipped.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "open aphorism file")
	}
	defer f.Close()
	return Read(f, nil)
}

// Read builds a Deck from r. A nil rng uses a randomly seeded source.
func Read(r io.Reader, rng *rand.Rand) (*Deck, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Annotate(err, "read aphorisms")
	}
	if len(lines) == 0 {
		return nil, errors.NotFoundf("aphorisms")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d := &Deck{lines: lines, rng: rng}
	d.shuffle()
	return d, nil
}

// Len is the number of distinct lines.
func (d *Deck) Len() int { return len(d.lines) }

// Next returns the next line of the current shuffle.
func (d *Deck) Next() (string, error) {
	if d.next >= len(d.order) {
		d.shuffle()
	}
	line := d.lines[d.order[d.next]]
	d.next++
	return line, nil
}

func (d *Deck) shuffle() {
	d.order = d.rng.Perm(len(d.lines))
	d.next = 0
}
