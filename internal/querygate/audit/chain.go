package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// ZeroHash is the hash_prev of the first event in a trail.
var ZeroHash = strings.Repeat("0", sha256.Size*2)

// ChainState is the head of the hash chain: the index and hash of the last
// recorded event.
type ChainState struct {
	LastChainIndex int    `json:"last_chain_index"`
	LastHeadHash   string `json:"last_head_hash"`
}

// link computes e's hash from prev: SHA256(prev + "|" + canonical(e)).
func link(prev string, e Event) (string, error) {
	canon, err := canonicalEvent(e)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	return chainHash(prev, canon), nil
}

func chainHash(prev, canon string) string {
	h := sha256.Sum256([]byte(prev + "|" + canon))
	return hex.EncodeToString(h[:])
}

// VerifyResult reports the outcome of VerifyChain.
type VerifyResult struct {
	Events int `json:"events"`
	// First is the chain index of the first event. A value above 1 means
	// the trail starts mid-chain; pin it with a checkpoint to detect
	// truncation from the front.
	First    int    `json:"first_index"`
	Tampered []int  `json:"tampered"`
	Head     string `json:"head"`
}

// OK reports whether no event failed verification.
func (r VerifyResult) OK() bool { return len(r.Tampered) == 0 }

// VerifyChain validates an NDJSON audit trail written by WriteNDJSON.
//
// Each event's hash is recomputed from its hash_prev and canonical form and
// compared with the stored one; hash_prev must also equal the previous
// event's hash and indices must be consecutive. A trail exported after eviction starts mid-chain, so the
// first event's hash_prev is trusted unless its index is 1, where it must be
// ZeroHash. Tampered holds the chain indices of failing events.
func VerifyChain(input io.Reader) (VerifyResult, error) {
	log := logger.L()
	start := time.Now()

	res := VerifyResult{Tampered: make([]int, 0)}
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	head := ""
	prevIdx := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			return res, fmt.Errorf("decode event: %w", err)
		}

		prev, _ := fields["hash_prev"].(string)
		got, _ := fields["hash"].(string)
		idxFloat, _ := fields["hash_chain_index"].(float64)
		idx := int(idxFloat)

		inSequence := true
		if res.Events == 0 {
			res.First = idx
			head = prev
			if idx == 1 {
				head = ZeroHash
			}
		} else {
			inSequence = idx == prevIdx+1
		}

		canon, err := Canonicalize(fields)
		if err != nil {
			return res, fmt.Errorf("canonicalize: %w", err)
		}
		if !inSequence || prev != head || chainHash(prev, canon) != got {
			res.Tampered = append(res.Tampered, idx)
		}

		head = got
		prevIdx = idx
		res.Events++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan input: %w", err)
	}
	res.Head = head

	log.Infow("audit.verify: done", "events", res.Events, "tampered", len(res.Tampered), "duration", time.Since(start))
	return res, nil
}

// WriteNDJSON writes events one JSON object per line.
func WriteNDJSON(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write event %s: %w", e.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}
	return nil
}
