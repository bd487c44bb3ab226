// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
)

// Key namespaces inside the backing database.
var (
	depositPrefix   = []byte("deposit")
	processedPrefix = []byte("processed")
	noncePrefix     = []byte("nonce")
	escrowPrefix    = []byte("escrow")
)

// depositStore is the write-through persistence behind an Engine: deposit
// records, the consumed-message set, per-domain nonces and the simple native
// escrow survive a restart. Native balances themselves live in the StateDB.
type depositStore struct {
	deposits  database.Database
	processed database.Database
	nonces    database.Database
	escrow    database.Database
}

func newDepositStore(db database.Database) *depositStore {
	return &depositStore{
		deposits:  prefixdb.New(depositPrefix, db),
		processed: prefixdb.New(processedPrefix, db),
		nonces:    prefixdb.New(noncePrefix, db),
		escrow:    prefixdb.New(escrowPrefix, db),
	}
}

// Serialized deposit layout: creator(20) baseAsset(20) quoteAsset(20)
// baseAmount(32) quoteAmount(32) sourceDomain(4) destDomain(4) expiry(8)
// settled(1) acceptorOnSource(20) quoteRecipient(20) refundAddress(20).
const depositRecordLen = 20 + 20 + 20 + 32 + 32 + 4 + 4 + 8 + 1 + 20 + 20 + 20

func encodeDeposit(rec *CrossDomainDeposit) []byte {
	buf := make([]byte, depositRecordLen)
	off := 0
	copy(buf[off:], rec.Creator[:])
	off += 20
	copy(buf[off:], rec.BaseAsset[:])
	off += 20
	copy(buf[off:], rec.QuoteAsset[:])
	off += 20
	rec.BaseAmount.WriteToSlice(buf[off : off+32])
	off += 32
	rec.QuoteAmount.WriteToSlice(buf[off : off+32])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], rec.SourceDomain)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], rec.DestDomain)
	off += 4
	binary.BigEndian.PutUint64(buf[off:], rec.ExpiryTime)
	off += 8
	if rec.Settled {
		buf[off] = 1
	}
	off++
	copy(buf[off:], rec.AcceptorOnSource[:])
	off += 20
	copy(buf[off:], rec.QuoteRecipient[:])
	off += 20
	copy(buf[off:], rec.RefundAddress[:])
	return buf
}

func decodeDeposit(id RFQID, buf []byte) (CrossDomainDeposit, error) {
	if len(buf) != depositRecordLen {
		return CrossDomainDeposit{}, ErrInvalidMessage
	}
	rec := CrossDomainDeposit{RFQID: id}
	off := 0
	copy(rec.Creator[:], buf[off:])
	off += 20
	copy(rec.BaseAsset[:], buf[off:])
	off += 20
	copy(rec.QuoteAsset[:], buf[off:])
	off += 20
	rec.BaseAmount = new(uint256.Int).SetBytes(buf[off : off+32])
	off += 32
	rec.QuoteAmount = new(uint256.Int).SetBytes(buf[off : off+32])
	off += 32
	rec.SourceDomain = binary.BigEndian.Uint32(buf[off:])
	off += 4
	rec.DestDomain = binary.BigEndian.Uint32(buf[off:])
	off += 4
	rec.ExpiryTime = binary.BigEndian.Uint64(buf[off:])
	off += 8
	rec.Settled = buf[off] == 1
	off++
	copy(rec.AcceptorOnSource[:], buf[off:])
	off += 20
	copy(rec.QuoteRecipient[:], buf[off:])
	off += 20
	copy(rec.RefundAddress[:], buf[off:])
	return rec, nil
}

func (s *depositStore) putDeposit(rec *CrossDomainDeposit) error {
	return s.deposits.Put(rec.RFQID[:], encodeDeposit(rec))
}

func (s *depositStore) loadDeposits() ([]CrossDomainDeposit, error) {
	it := s.deposits.NewIterator()
	defer it.Release()

	var out []CrossDomainDeposit
	for it.Next() {
		var id RFQID
		copy(id[:], it.Key())
		rec, err := decodeDeposit(id, it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, it.Error()
}

func (s *depositStore) markProcessed(hash common.Hash) error {
	return s.processed.Put(hash[:], []byte{1})
}

func (s *depositStore) loadProcessed() ([]common.Hash, error) {
	it := s.processed.NewIterator()
	defer it.Release()

	var out []common.Hash
	for it.Next() {
		out = append(out, common.BytesToHash(it.Key()))
	}
	return out, it.Error()
}

func (s *depositStore) putNonce(domain uint32, nonce uint64) error {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], domain)
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], nonce)
	return s.nonces.Put(key[:], val[:])
}

func (s *depositStore) loadNonces() (map[uint32]uint64, error) {
	it := s.nonces.NewIterator()
	defer it.Release()

	out := make(map[uint32]uint64)
	for it.Next() {
		if len(it.Key()) != 4 || len(it.Value()) != 8 {
			continue
		}
		out[binary.BigEndian.Uint32(it.Key())] = binary.BigEndian.Uint64(it.Value())
	}
	return out, it.Error()
}

func (s *depositStore) putEscrow(id RFQID, amount *uint256.Int) error {
	buf := make([]byte, 32)
	amount.WriteToSlice(buf)
	return s.escrow.Put(id[:], buf)
}

func (s *depositStore) deleteEscrow(id RFQID) error {
	return s.escrow.Delete(id[:])
}

func (s *depositStore) loadEscrow() (map[RFQID]*uint256.Int, error) {
	it := s.escrow.NewIterator()
	defer it.Release()

	out := make(map[RFQID]*uint256.Int)
	for it.Next() {
		var id RFQID
		copy(id[:], it.Key())
		out[id] = new(uint256.Int).SetBytes(it.Value())
	}
	return out, it.Error()
}
