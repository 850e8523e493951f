package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/batchedtree"
	"github.com/forestrie/go-batchedtree/checkpoint"
	"github.com/forestrie/go-batchedtree/reftree"
	"github.com/forestrie/go-batchedtree/regionstore"
	fuzz "github.com/google/gofuzz"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/veraison/go-cose"
)

type simulateFlags struct {
	seed         int64
	count        int
	nullifyEvery int
	db           string
	sign         bool
	issuer       string
}

func newSimulateCmd(flags *treeFlags) *cobra.Command {
	sf := simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run inserts and chunk applications against an in memory tree",
		Long: `simulate formats a region for the tree parameters, queues generated values
and applies every chunk that becomes ready. New roots are computed with a
reference tree and proofs are accepted without verification.

For state trees --count leaves are appended, then every --nullify-every'th
leaf in the tree is nullified. For address trees --count addresses are
inserted.

With --sign the final tree state is signed as a COSE Sign1 checkpoint with
a generated ES256 key, then verified using the root read back from the
root history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.params()
			if err != nil {
				return err
			}
			sim, err := newSimulator(p, sf.seed)
			if err != nil {
				return err
			}
			switch p.TreeType {
			case batchedtree.TreeTypeAddress:
				err = sim.runAddress(sf.count)
			default:
				err = sim.runState(sf.count, sf.nullifyEvery)
			}
			if err != nil {
				return err
			}
			if err := sim.print(cmd.OutOrStdout()); err != nil {
				return err
			}
			if sf.sign {
				if err := sim.signCheckpoint(cmd.OutOrStdout(), sf.issuer); err != nil {
					return err
				}
			}
			if sf.db == "" {
				return nil
			}
			store, err := regionstore.Open(sf.db, sim.log)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Put(sim.treeID(), sim.region); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored tree %s\n", sim.treeID())
			return nil
		},
	}
	cmd.Flags().Int64Var(&sf.seed, "seed", 0, "seed for the generated values")
	cmd.Flags().IntVar(&sf.count, "count", 16, "number of leaves or addresses to insert")
	cmd.Flags().IntVar(&sf.nullifyEvery, "nullify-every", 2, "nullify every n'th leaf (0 disables)")
	cmd.Flags().StringVar(&sf.db, "db", "", "store the resulting region in the LevelDB database at this path")
	cmd.Flags().BoolVar(&sf.sign, "sign", false, "sign and verify a checkpoint of the final tree state")
	cmd.Flags().StringVar(&sf.issuer, "issuer", "batchtree", "issuer claim of the signed checkpoint")
	return cmd
}

// queuedNullifier is a nullification waiting for its input chunk.
type queuedNullifier struct {
	leafIndex uint64
	nullifier [32]byte
}

type simulator struct {
	log    logger.Logger
	region []byte
	f      *fuzz.Fuzzer
	ref    *reftree.Tree

	state   *batchedtree.StateTree
	address *batchedtree.AddressTree

	values     [][32]byte
	nullifiers []queuedNullifier
	addresses  [][32]byte
	events     []batchedtree.Event
}

func newSimulator(p batchedtree.Params, seed int64) (*simulator, error) {
	size, err := batchedtree.RegionBytes(p)
	if err != nil {
		return nil, err
	}
	sim := &simulator{
		log:    logger.Sugar.WithServiceName("simulate"),
		region: make([]byte, size),
		f:      fuzz.NewWithSeed(seed).NilChance(0),
	}
	opts := []batchedtree.Option{
		batchedtree.WithLogger(sim.log),
		batchedtree.WithVerifier(batchedtree.AcceptAll),
	}
	switch p.TreeType {
	case batchedtree.TreeTypeAddress:
		if sim.address, err = batchedtree.InitAddressTree(sim.region, p, opts...); err != nil {
			return nil, err
		}
		if sim.ref, err = reftree.New(sim.address.Hasher(), p.Height); err != nil {
			return nil, err
		}
		leaf, err := batchedtree.LowSentinelLeaf(sim.address.Hasher())
		if err != nil {
			return nil, err
		}
		if _, err := sim.ref.Append(leaf); err != nil {
			return nil, err
		}
	default:
		if sim.state, err = batchedtree.InitStateTree(sim.region, p, opts...); err != nil {
			return nil, err
		}
		if sim.ref, err = reftree.New(sim.state.Hasher(), p.Height); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// value returns the next generated value with the first byte cleared.
func (s *simulator) value() [32]byte {
	var v [32]byte
	s.f.Fuzz(&v)
	v[0] = 0
	return v
}

// notReady reports whether the next full batch has no chunk to apply.
func notReady(err error) bool {
	return errors.Is(err, batch.ErrBatchNotReady)
}

func (s *simulator) runState(count, nullifyEvery int) error {
	for i := 0; i < count; i++ {
		v := s.value()
		if _, err := s.state.AppendLeaf(v); err != nil {
			return err
		}
		s.values = append(s.values, v)
		if err := s.drainOutput(); err != nil {
			return err
		}
	}
	if nullifyEvery <= 0 {
		return nil
	}
	h := s.state.Hasher()
	for idx := uint64(0); idx < s.state.NextIndex(); idx += uint64(nullifyEvery) {
		tx := s.value()
		nullifier, err := batchedtree.Nullifier(h, s.values[idx], idx, tx)
		if err != nil {
			return err
		}
		if err := s.state.InsertNullifier(s.values[idx], idx, tx, false); err != nil {
			return err
		}
		s.nullifiers = append(s.nullifiers, queuedNullifier{leafIndex: idx, nullifier: nullifier})
		if err := s.drainInput(); err != nil {
			return err
		}
	}
	return nil
}

// drainOutput applies every ready output chunk, appending its leaves to the
// reference tree for the new root.
func (s *simulator) drainOutput() error {
	for {
		leaves, err := s.state.OutputChunkLeaves()
		if notReady(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, leaf := range leaves {
			if _, err := s.ref.Append(leaf); err != nil {
				return err
			}
		}
		root, err := s.ref.Root()
		if err != nil {
			return err
		}
		e, err := s.state.ApplyOutputChunk(batchedtree.AppendChunkRequest{NewRoot: root})
		if err != nil {
			return err
		}
		s.events = append(s.events, e)
	}
}

// drainInput applies every ready input chunk. The nullifier replaces the
// leaf in the reference tree.
func (s *simulator) drainInput() error {
	for {
		chunk, err := s.state.InputQueue().ReadyChunk()
		if notReady(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, n := range s.nullifiers[:chunk.Size] {
			if err := s.ref.Update(n.leafIndex, n.nullifier); err != nil {
				return err
			}
		}
		root, err := s.ref.Root()
		if err != nil {
			return err
		}
		e, err := s.state.ApplyInputChunk(batchedtree.NullifyChunkRequest{NewRoot: root})
		if err != nil {
			return err
		}
		s.nullifiers = s.nullifiers[chunk.Size:]
		s.events = append(s.events, e)
	}
}

// runAddress inserts count addresses. The reference roots append the raw
// addresses after the sentinel leaf; low element updates are not modelled.
func (s *simulator) runAddress(count int) error {
	for i := 0; i < count; i++ {
		a := s.value()
		if err := s.address.InsertAddress(a); err != nil {
			return err
		}
		s.addresses = append(s.addresses, a)
		if err := s.drainAddresses(); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulator) drainAddresses() error {
	for {
		chunk, err := s.address.InputQueue().ReadyChunk()
		if notReady(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, a := range s.addresses[:chunk.Size] {
			if _, err := s.ref.Append(a); err != nil {
				return err
			}
		}
		root, err := s.ref.Root()
		if err != nil {
			return err
		}
		e, err := s.address.ApplyAddressChunk(batchedtree.NullifyChunkRequest{NewRoot: root})
		if err != nil {
			return err
		}
		s.addresses = s.addresses[chunk.Size:]
		s.events = append(s.events, e)
	}
}

func (s *simulator) treeID() uuid.UUID {
	if s.address != nil {
		return s.address.TreeID()
	}
	return s.state.TreeID()
}

func (s *simulator) view() treeView {
	if s.address != nil {
		return s.address
	}
	return s.state
}

func (s *simulator) print(w io.Writer) error {
	for _, e := range s.events {
		fmt.Fprintf(w, "%-22s batch %d chunk %d  next index %d -> %d  root index %d  invalidated %d\n",
			e.Kind, e.BatchIndex, e.ZkpBatchIndex, e.OldNextIndex, e.NewNextIndex, e.RootIndex, e.InvalidatedRoots)
	}
	if s.address != nil {
		return printSummary(w, s.address, nil)
	}
	return printSummary(w, s.state, s.state.OutputQueue())
}

// signCheckpoint signs the current tree state with a generated key and
// verifies the message the way a relying party would, restoring the root
// from the root history.
func (s *simulator) signCheckpoint(w io.Writer, issuer string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return err
	}
	codec, err := checkpoint.NewCodec()
	if err != nil {
		return err
	}
	t := s.view()
	rs := checkpoint.NewRootSigner(issuer, codec)
	msg, err := rs.Sign1(signer, "simulate", s.treeID().String(), t.State(), nil)
	if err != nil {
		return err
	}

	signed, unverified, err := checkpoint.DecodeSignedRoot(codec, msg)
	if err != nil {
		return err
	}
	root, err := t.RootHistory().Get(unverified.RootIndex)
	if err != nil {
		return err
	}
	unverified.Root = root[:]
	provider := checkpoint.NewPublicKeyProvider(signed, key.Public())
	if err := checkpoint.VerifySignedRoot(codec, provider, signed, unverified, nil); err != nil {
		return fmt.Errorf("signed checkpoint: %w", err)
	}
	s.log.Infof("signed checkpoint for tree %s at sequence number %d", s.treeID(), unverified.SequenceNumber)
	fmt.Fprintf(w, "signed checkpoint %d bytes, sequence number %d, root index %d verified\n",
		len(msg), unverified.SequenceNumber, unverified.RootIndex)
	return nil
}
