// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Wire layout of a deposit notification, after the one-byte type tag:
// rfqID(32) creator(20) baseAsset(20) quoteAsset(20) baseAmount(32)
// quoteAmount(32) expiry(8) acceptorOnSource(20) quoteRecipient(20).
const depositNotificationLen = 1 + 32 + 20 + 20 + 20 + 32 + 32 + 8 + 20 + 20

// Wire layout of a settlement confirmation: tag(1) rfqID(32).
const settlementConfirmationLen = 1 + 32

// DepositNotification carries the full trade terms from the source domain to
// the destination domain.
type DepositNotification struct {
	RFQID            RFQID
	Creator          common.Address
	BaseAsset        common.Address
	QuoteAsset       common.Address
	BaseAmount       *uint256.Int
	QuoteAmount      *uint256.Int
	ExpiryTime       uint64
	AcceptorOnSource common.Address
	QuoteRecipient   common.Address
}

// EncodeDepositNotification serializes a deposit notification.
func EncodeDepositNotification(n *DepositNotification) []byte {
	buf := make([]byte, depositNotificationLen)
	buf[0] = MsgDepositNotification
	off := 1
	copy(buf[off:], n.RFQID[:])
	off += 32
	copy(buf[off:], n.Creator[:])
	off += 20
	copy(buf[off:], n.BaseAsset[:])
	off += 20
	copy(buf[off:], n.QuoteAsset[:])
	off += 20
	n.BaseAmount.WriteToSlice(buf[off : off+32])
	off += 32
	n.QuoteAmount.WriteToSlice(buf[off : off+32])
	off += 32
	binary.BigEndian.PutUint64(buf[off:], n.ExpiryTime)
	off += 8
	copy(buf[off:], n.AcceptorOnSource[:])
	off += 20
	copy(buf[off:], n.QuoteRecipient[:])
	return buf
}

// DecodeDepositNotification parses a deposit notification payload, including
// its leading tag.
func DecodeDepositNotification(payload []byte) (*DepositNotification, error) {
	if len(payload) != depositNotificationLen || payload[0] != MsgDepositNotification {
		return nil, ErrInvalidMessage
	}
	n := &DepositNotification{}
	off := 1
	copy(n.RFQID[:], payload[off:])
	off += 32
	copy(n.Creator[:], payload[off:])
	off += 20
	copy(n.BaseAsset[:], payload[off:])
	off += 20
	copy(n.QuoteAsset[:], payload[off:])
	off += 20
	n.BaseAmount = new(uint256.Int).SetBytes(payload[off : off+32])
	off += 32
	n.QuoteAmount = new(uint256.Int).SetBytes(payload[off : off+32])
	off += 32
	n.ExpiryTime = binary.BigEndian.Uint64(payload[off:])
	off += 8
	copy(n.AcceptorOnSource[:], payload[off:])
	off += 20
	copy(n.QuoteRecipient[:], payload[off:])
	return n, nil
}

// EncodeSettlementConfirmation serializes a settlement confirmation.
func EncodeSettlementConfirmation(id RFQID) []byte {
	buf := make([]byte, settlementConfirmationLen)
	buf[0] = MsgSettlementConfirmation
	copy(buf[1:], id[:])
	return buf
}

// DecodeSettlementConfirmation parses a settlement confirmation payload.
func DecodeSettlementConfirmation(payload []byte) (RFQID, error) {
	if len(payload) != settlementConfirmationLen || payload[0] != MsgSettlementConfirmation {
		return RFQID{}, ErrInvalidMessage
	}
	var id RFQID
	copy(id[:], payload[1:])
	return id, nil
}

// deriveRFQID produces a globally unique rfq id for a cross-domain deposit.
// The per-destination nonce keeps two deposits distinct even when submitted
// in the same instant by the same creator.
func deriveRFQID(localDomain, destDomain uint32, creator common.Address, nonce uint64, unixNano int64) RFQID {
	hasher := blake3.New()
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], localDomain)
	hasher.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], destDomain)
	hasher.Write(u32[:])
	hasher.Write(creator[:])
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], nonce)
	hasher.Write(u64[:])
	binary.BigEndian.PutUint64(u64[:], uint64(unixNano))
	hasher.Write(u64[:])

	var id RFQID
	copy(id[:], hasher.Sum(nil))
	return id
}

// DeliveryHash derives the unique identifier of one relay delivery attempt
// from the source domain, relay sequence number and payload.
func DeliveryHash(sourceDomain uint32, sequence uint64, payload []byte) common.Hash {
	buf := make([]byte, 4+8+len(payload))
	binary.BigEndian.PutUint32(buf, sourceDomain)
	binary.BigEndian.PutUint64(buf[4:], sequence)
	copy(buf[12:], payload)
	return common.BytesToHash(crypto.Keccak256(buf))
}
