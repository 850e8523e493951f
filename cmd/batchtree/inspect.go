package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-batchedtree/batchedtree"
	"github.com/forestrie/go-batchedtree/checkpoint"
	"github.com/forestrie/go-batchedtree/queue"
	"github.com/forestrie/go-batchedtree/regionstore"
	"github.com/forestrie/go-batchedtree/roothistory"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var db, treeID string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Open a stored region and print its counters, queues and root history",
		Long: `inspect reads regions stored by simulate --db. Without --tree-id it lists
the stored tree ids.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Sugar.WithServiceName("inspect")
			store, err := regionstore.Open(db, log)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			if treeID == "" {
				ids, err := store.IDs()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			id, err := uuid.Parse(treeID)
			if err != nil {
				return err
			}
			region, err := store.Get(id)
			if err != nil {
				return err
			}
			return inspectRegion(out, region, log)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "LevelDB database written by simulate --db")
	cmd.Flags().StringVar(&treeID, "tree-id", "", "tree to open")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func inspectRegion(w io.Writer, region []byte, log logger.Logger) error {
	hdr, err := batchedtree.DecodeHeader(region)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "tree %s (%s, %s, height %d)\n", hdr.TreeID, hdr.TreeType, hdr.Hasher, hdr.Height)
	switch hdr.TreeType {
	case batchedtree.TreeTypeAddress:
		a, err := batchedtree.OpenAddressTree(region, batchedtree.WithLogger(log))
		if err != nil {
			return err
		}
		return printSummary(w, a, nil)
	default:
		s, err := batchedtree.OpenStateTree(region, batchedtree.WithLogger(log))
		if err != nil {
			return err
		}
		return printSummary(w, s, s.OutputQueue())
	}
}

// treeView is the part of a tree the summary reads.
type treeView interface {
	SequenceNumber() uint64
	NextIndex() uint64
	RootIndex() uint32
	Root() [32]byte
	RootHistory() roothistory.History
	InputQueue() *queue.Queue
	State() checkpoint.TreeState
}

func printSummary(w io.Writer, t treeView, output *queue.Queue) error {
	root := t.Root()
	fmt.Fprintf(w, "sequence number %d\n", t.SequenceNumber())
	fmt.Fprintf(w, "next index      %d\n", t.NextIndex())
	fmt.Fprintf(w, "root index      %d\n", t.RootIndex())
	fmt.Fprintf(w, "root            %s\n", hex.EncodeToString(root[:]))
	if err := printQueue(w, "input queue", t.InputQueue()); err != nil {
		return err
	}
	if output != nil {
		if err := printQueue(w, "output queue", output); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "root history\n")
	for i, r := range t.RootHistory().Slots() {
		marker := ""
		if roothistory.IsSentinel(r) {
			marker = " (empty)"
		}
		fmt.Fprintf(w, "  %3d %s%s\n", i, hex.EncodeToString(r[:]), marker)
	}
	return nil
}

func printQueue(w io.Writer, name string, q *queue.Queue) error {
	fmt.Fprintf(w, "%s: processing %d, next full %d\n", name, q.CurrentlyProcessingBatchIndex(), q.NextFullBatchIndex())
	for i := 0; i < queue.NumBatches; i++ {
		b, err := q.Batch(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  batch %d %-8s inserted %d/%d zkps %d/%d bloom zeroed %t\n",
			i, b.State, b.NumInsertedElements, b.BatchSize, b.NumInsertedZkps, b.NumZkpBatches(), b.BloomZeroed)
	}
	return nil
}
