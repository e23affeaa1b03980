// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldbstore implements store.Store on top of
// github.com/syndtr/goleveldb, the key-value engine the teacher's
// dependency set already carries for auxiliary indexes.
package leveldbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/waltterr"
)

// Key-space prefixes. Each entity lives under its own prefix so a
// prefix-bounded iterator can enumerate it without touching others.
const (
	prefixHead    = "h"
	prefixHeader  = "b:" // + 32-byte hash
	prefixHeight  = "i:" // + big-endian uint32 height -> hash
	prefixReceive = "r:" // + 32-byte txhash + 4-byte index
	prefixSend    = "s:" // + 32-byte txhash
	prefixAddr    = "a:" // + address string
	prefixKey     = "k:" // + 20-byte hash160
)

// Store is a goleveldb-backed store.Store. A single mutex serializes
// writes; goleveldb itself allows concurrent reads (spec.md Section
// 4.2: "All write operations are serialized by a single store-wide
// mutex; read operations may be concurrent").
type Store struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Open opens (creating if absent) a leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "open leveldb", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return waltterr.Wrap(waltterr.Store, "close leveldb", err)
	}
	return nil
}

func headerKey(hash chainhash.Hash) []byte {
	return append([]byte(prefixHeader), hash[:]...)
}

func heightKey(height int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(height))
	return append([]byte(prefixHeight), buf[:]...)
}

func receiveKey(hash chainhash.Hash, index uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], index)
	k := append([]byte(prefixReceive), hash[:]...)
	return append(k, buf[:]...)
}

func sendKey(hash chainhash.Hash) []byte {
	return append([]byte(prefixSend), hash[:]...)
}

func addrKey(addr string) []byte {
	return append([]byte(prefixAddr), []byte(addr)...)
}

func keyKey(hash160 [20]byte) []byte {
	return append([]byte(prefixKey), hash160[:]...)
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "encode record", err)
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return waltterr.Wrap(waltterr.Store, "decode record", err)
	}
	return nil
}

func (s *Store) GetChainHead() (*store.ChainHead, error) {
	data, err := s.db.Get([]byte(prefixHead), nil)
	if err == leveldb.ErrNotFound {
		return nil, waltterr.New(waltterr.Store, "chain head not set")
	}
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "get chain head", err)
	}
	var head store.ChainHead
	if err := gobDecode(data, &head); err != nil {
		return nil, err
	}
	return &head, nil
}

func (s *Store) PutChainHead(head *store.ChainHead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := gobEncode(head)
	if err != nil {
		return err
	}
	if err := s.db.Put([]byte(prefixHead), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "put chain head", err)
	}
	return nil
}

func (s *Store) IsNewBlock(hash chainhash.Hash) (bool, error) {
	ok, err := s.db.Has(headerKey(hash), nil)
	if err != nil {
		return false, waltterr.Wrap(waltterr.Store, "check header existence", err)
	}
	return !ok, nil
}

func (s *Store) StoreHeader(h *store.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := gobEncode(h)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(headerKey(h.Hash), data)
	batch.Put(heightKey(h.Height), h.Hash[:])
	if err := s.db.Write(batch, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "store header", err)
	}
	return nil
}

func (s *Store) UpdateMatches(hash chainhash.Hash, matched []chainhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.getHeaderLocked(hash)
	if err != nil {
		return err
	}
	h.Matched = matched
	data, err := gobEncode(h)
	if err != nil {
		return err
	}
	if err := s.db.Put(headerKey(hash), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "update matched transactions", err)
	}
	return nil
}

func (s *Store) getHeaderLocked(hash chainhash.Hash) (*store.Header, error) {
	data, err := s.db.Get(headerKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, waltterr.New(waltterr.BlockNotFound, "header not found")
	}
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "get header", err)
	}
	var h store.Header
	if err := gobDecode(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) GetHeader(hash chainhash.Hash) (*store.Header, error) {
	data, err := s.db.Get(headerKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, waltterr.New(waltterr.BlockNotFound, "header not found")
	}
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "get header", err)
	}
	var h store.Header
	if err := gobDecode(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) GetChildHeader(parent chainhash.Hash) (*store.Header, error) {
	parentHdr, err := s.GetHeader(parent)
	if err != nil {
		return nil, err
	}
	hash, err := s.GetBlockHash(parentHdr.Height + 1)
	if err != nil {
		return nil, err
	}
	child, err := s.GetHeader(hash)
	if err != nil {
		return nil, err
	}
	if child.Header.PrevBlock != parent {
		return nil, waltterr.New(waltterr.BlockNotFound, "no child header for parent")
	}
	return child, nil
}

func (s *Store) GetBlockHash(height int32) (chainhash.Hash, error) {
	data, err := s.db.Get(heightKey(height), nil)
	if err == leveldb.ErrNotFound {
		return chainhash.Hash{}, waltterr.New(waltterr.BlockNotFound, "no block at height")
	}
	if err != nil {
		return chainhash.Hash{}, waltterr.Wrap(waltterr.Store, "get block hash", err)
	}
	var h chainhash.Hash
	copy(h[:], data)
	return h, nil
}

func (s *Store) GetChainList(startHeight int32, stopHash chainhash.Hash, max int) ([]*store.Header, error) {
	if max <= 0 || max > 500 {
		max = 500
	}
	var out []*store.Header
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixHeight)), nil)
	defer iter.Release()
	for iter.Seek(heightKey(startHeight)); iter.Valid() && len(out) < max; iter.Next() {
		var hash chainhash.Hash
		copy(hash[:], iter.Value())
		h, err := s.GetHeader(hash)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		if hash == stopHash {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "iterate chain list", err)
	}
	return out, nil
}

func (s *Store) GetRescanHeight(since time.Time) (int32, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixHeight)), nil)
	defer iter.Release()
	var best int32
	for iter.Next() {
		var hash chainhash.Hash
		copy(hash[:], iter.Value())
		h, err := s.GetHeader(hash)
		if err != nil {
			return 0, err
		}
		if h.Header.Timestamp.Before(since) {
			best = h.Height
			continue
		}
		break
	}
	if err := iter.Error(); err != nil {
		return 0, waltterr.Wrap(waltterr.Store, "iterate for rescan height", err)
	}
	return best, nil
}

func (s *Store) GetJunction(hash chainhash.Hash) ([]*store.Header, error) {
	var segment []*store.Header
	cur := hash
	for {
		h, err := s.GetHeader(cur)
		if err != nil {
			return nil, err
		}
		segment = append(segment, h)
		if h.OnChain {
			break
		}
		cur = h.Header.PrevBlock
	}
	// Reverse into ascending order.
	for i, j := 0, len(segment)-1; i < j; i, j = i+1, j-1 {
		segment[i], segment[j] = segment[j], segment[i]
	}
	return segment, nil
}

func (s *Store) SetChainHead(segment []*store.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	for _, h := range segment {
		h.OnChain = true
		data, err := gobEncode(h)
		if err != nil {
			return err
		}
		batch.Put(headerKey(h.Hash), data)
		batch.Put(heightKey(h.Height), h.Hash[:])
	}
	if len(segment) > 0 {
		top := segment[len(segment)-1]
		head := &store.ChainHead{Hash: top.Hash, Height: top.Height, ChainWork: top.ChainWork}
		data, err := gobEncode(head)
		if err != nil {
			return err
		}
		batch.Put([]byte(prefixHead), data)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "set chain head", err)
	}
	return s.reconfirmLocked(segment)
}

// reconfirmLocked rewrites confirmation state on receive/send
// transactions embedded in newly-on-chain headers. The caller already
// holds s.mu.
func (s *Store) reconfirmLocked(segment []*store.Header) error {
	for _, h := range segment {
		for _, txHash := range h.Matched {
			iter := s.db.NewIterator(util.BytesPrefix(append([]byte(prefixReceive), txHash[:]...)), nil)
			for iter.Next() {
				var out store.ReceiveOutput
				if err := gobDecode(iter.Value(), &out); err != nil {
					iter.Release()
					return err
				}
				hh := h.Hash
				out.BlockHash = &hh
				data, err := gobEncode(out)
				if err != nil {
					iter.Release()
					return err
				}
				if err := s.db.Put(append([]byte(nil), iter.Key()...), data, nil); err != nil {
					iter.Release()
					return waltterr.Wrap(waltterr.Store, "reconfirm receive output", err)
				}
			}
			iter.Release()

			key := sendKey(txHash)
			data, err := s.db.Get(key, nil)
			if err == leveldb.ErrNotFound {
				continue
			}
			if err != nil {
				return waltterr.Wrap(waltterr.Store, "get send transaction for reconfirm", err)
			}
			var tx store.SendTransaction
			if err := gobDecode(data, &tx); err != nil {
				return err
			}
			hh := h.Hash
			tx.BlockHash = &hh
			out, err := gobEncode(tx)
			if err != nil {
				return err
			}
			if err := s.db.Put(key, out, nil); err != nil {
				return waltterr.Wrap(waltterr.Store, "reconfirm send transaction", err)
			}
		}
	}
	return nil
}

func (s *Store) StoreReceiveTx(out *store.ReceiveOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := gobEncode(out)
	if err != nil {
		return err
	}
	if err := s.db.Put(receiveKey(out.TxHash, out.OutputIndex), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "store receive output", err)
	}
	return nil
}

func (s *Store) GetReceiveTxList() ([]*store.ReceiveOutput, error) {
	var out []*store.ReceiveOutput
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixReceive)), nil)
	defer iter.Release()
	for iter.Next() {
		var r store.ReceiveOutput
		if err := gobDecode(iter.Value(), &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := iter.Error(); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "iterate receive outputs", err)
	}
	return out, nil
}

func (s *Store) StoreSendTx(tx *store.SendTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := gobEncode(tx)
	if err != nil {
		return err
	}
	if err := s.db.Put(sendKey(tx.TxHash), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "store send transaction", err)
	}
	return nil
}

func (s *Store) GetSendTxList() ([]*store.SendTransaction, error) {
	var out []*store.SendTransaction
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixSend)), nil)
	defer iter.Release()
	for iter.Next() {
		var tx store.SendTransaction
		if err := gobDecode(iter.Value(), &tx); err != nil {
			return nil, err
		}
		out = append(out, &tx)
	}
	if err := iter.Error(); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "iterate send transactions", err)
	}
	return out, nil
}

func (s *Store) GetSendTx(hash chainhash.Hash) (*store.SendTransaction, error) {
	data, err := s.db.Get(sendKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, waltterr.New(waltterr.Store, "send transaction not found")
	}
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "get send transaction", err)
	}
	var tx store.SendTransaction
	if err := gobDecode(data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) StoreAddress(addr *addresses.Address, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := store.StoredAddress{Address: addr.String(), Label: label}
	data, err := gobEncode(rec)
	if err != nil {
		return err
	}
	if err := s.db.Put(addrKey(rec.Address), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "store address", err)
	}
	return nil
}

func (s *Store) GetAddressList() ([]store.StoredAddress, error) {
	var out []store.StoredAddress
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixAddr)), nil)
	defer iter.Release()
	for iter.Next() {
		var a store.StoredAddress
		if err := gobDecode(iter.Value(), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := iter.Error(); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "iterate addresses", err)
	}
	return out, nil
}

func (s *Store) DeleteAddress(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(addrKey(addr), nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "delete address", err)
	}
	return nil
}

func (s *Store) SetAddressLabel(addr, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get(addrKey(addr), nil)
	if err != nil {
		return waltterr.Wrap(waltterr.Store, "get address for relabel", err)
	}
	var rec store.StoredAddress
	if err := gobDecode(data, &rec); err != nil {
		return err
	}
	rec.Label = label
	out, err := gobEncode(rec)
	if err != nil {
		return err
	}
	if err := s.db.Put(addrKey(addr), out, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "set address label", err)
	}
	return nil
}

func (s *Store) StoreKey(k *keys.ECKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := k.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.db.Put(keyKey(k.Hash160), data, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "store key", err)
	}
	return nil
}

func (s *Store) GetKeyList() ([]*keys.ECKey, error) {
	var out []*keys.ECKey
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixKey)), nil)
	defer iter.Release()
	for iter.Next() {
		k := &keys.ECKey{}
		if err := k.UnmarshalBinary(iter.Value()); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := iter.Error(); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "iterate keys", err)
	}
	return out, nil
}

func (s *Store) SetKeyLabel(hash160 [20]byte, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get(keyKey(hash160), nil)
	if err != nil {
		return waltterr.Wrap(waltterr.Store, "get key for relabel", err)
	}
	k := &keys.ECKey{}
	if err := k.UnmarshalBinary(data); err != nil {
		return err
	}
	k.Label = label
	out, err := k.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.db.Put(keyKey(hash160), out, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "set key label", err)
	}
	return nil
}

func (s *Store) IsNewTransaction(hash chainhash.Hash) (bool, error) {
	ok, err := s.db.Has(sendKey(hash), nil)
	if err != nil {
		return false, waltterr.Wrap(waltterr.Store, "check send existence", err)
	}
	if ok {
		return false, nil
	}
	iter := s.db.NewIterator(util.BytesPrefix(append([]byte(prefixReceive), hash[:]...)), nil)
	defer iter.Release()
	return !iter.Next(), nil
}

func (s *Store) SetTxSpent(hash chainhash.Hash, index uint32, spent bool) error {
	return s.mutateReceive(hash, index, func(r *store.ReceiveOutput) { r.IsSpent = spent })
}

func (s *Store) SetTxSafe(hash chainhash.Hash, index uint32, safe bool) error {
	return s.mutateReceive(hash, index, func(r *store.ReceiveOutput) { r.InSafe = safe })
}

func (s *Store) SetReceiveTxDelete(hash chainhash.Hash, index uint32, deleted bool) error {
	return s.mutateReceive(hash, index, func(r *store.ReceiveOutput) { r.IsDeleted = deleted })
}

func (s *Store) mutateReceive(hash chainhash.Hash, index uint32, mutate func(*store.ReceiveOutput)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiveKey(hash, index)
	data, err := s.db.Get(key, nil)
	if err != nil {
		return waltterr.Wrap(waltterr.Store, "get receive output", err)
	}
	var r store.ReceiveOutput
	if err := gobDecode(data, &r); err != nil {
		return err
	}
	mutate(&r)
	out, err := gobEncode(r)
	if err != nil {
		return err
	}
	if err := s.db.Put(key, out, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "update receive output", err)
	}
	return nil
}

func (s *Store) SetSendTxDelete(hash chainhash.Hash, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sendKey(hash)
	data, err := s.db.Get(key, nil)
	if err != nil {
		return waltterr.Wrap(waltterr.Store, "get send transaction", err)
	}
	var tx store.SendTransaction
	if err := gobDecode(data, &tx); err != nil {
		return err
	}
	tx.IsDeleted = deleted
	out, err := gobEncode(tx)
	if err != nil {
		return err
	}
	if err := s.db.Put(key, out, nil); err != nil {
		return waltterr.Wrap(waltterr.Store, "delete send transaction", err)
	}
	return nil
}

func (s *Store) GetTxDepth(hash chainhash.Hash) (int32, error) {
	head, err := s.GetChainHead()
	if err != nil {
		return 0, err
	}

	if h, err := s.GetHeader(hash); err == nil && h.OnChain {
		return head.Height - h.Height + 1, nil
	}

	iter := s.db.NewIterator(util.BytesPrefix(append([]byte(prefixReceive), hash[:]...)), nil)
	if iter.Next() {
		var r store.ReceiveOutput
		if err := gobDecode(iter.Value(), &r); err != nil {
			iter.Release()
			return 0, err
		}
		iter.Release()
		return s.blockHashDepth(head, r.BlockHash), nil
	}
	iter.Release()

	data, err := s.db.Get(sendKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, waltterr.Wrap(waltterr.Store, "get send transaction for depth", err)
	}
	var tx store.SendTransaction
	if err := gobDecode(data, &tx); err != nil {
		return 0, err
	}
	return s.blockHashDepth(head, tx.BlockHash), nil
}

// blockHashDepth returns the confirmation depth a transaction confirmed
// in the block named by hash has relative to head, or 0 if hash is nil
// or no longer names an on-chain header.
func (s *Store) blockHashDepth(head *store.ChainHead, hash *chainhash.Hash) int32 {
	if hash == nil {
		return 0
	}
	blockHdr, err := s.GetHeader(*hash)
	if err != nil || !blockHdr.OnChain {
		return 0
	}
	return head.Height - blockHdr.Height + 1
}
