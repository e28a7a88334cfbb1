package ledgerpb

import (
	"bytes"
	"encoding/hex"

	"github.com/ryjones/iroha/crypto"
)

// TxHash computes the transaction hash: SHA3-256 over the canonical
// payload bytes, signatures excluded.
func TxHash(t *Transaction) string {
	return crypto.SHA3Hash(t.PayloadBytes())
}

// BatchHash computes the batch hash from the concatenated member
// transaction hashes, in order.
func BatchHash(b *Batch) string {
	buf := bytes.NewBuffer(nil)
	for _, tx := range b.Transactions {
		hb, err := hex.DecodeString(TxHash(tx))
		if err != nil {
			continue
		}
		buf.Write(hb)
	}
	return crypto.SHA3Hash(buf.Bytes())
}

// ProposalHash computes the proposal hash over the canonical bytes.
func ProposalHash(p *Proposal) string {
	return crypto.SHA3Hash(p.Marshal())
}

// BlockHash computes the block hash: SHA3-256 over the canonical
// payload bytes, signatures excluded.
func BlockHash(b *Block) string {
	return crypto.SHA3Hash(b.PayloadBytes())
}
