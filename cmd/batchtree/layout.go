package main

import (
	"fmt"
	"io"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/batchedtree"
	"github.com/forestrie/go-batchedtree/queue"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

func newLayoutCmd(flags *treeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the region size and section offsets for the tree parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.params()
			if err != nil {
				return err
			}
			l, err := batchedtree.ComputeLayout(p)
			if err != nil {
				return err
			}
			printLayout(cmd.OutOrStdout(), p, l)
			return nil
		},
	}
}

// section formats an absolute offset and a length.
func section(name string, off, n uint64) string {
	return fmt.Sprintf("%-12s %12d +%d", name, off, n)
}

func printLayout(w io.Writer, p batchedtree.Params, l batchedtree.Layout) {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s tree, %s, height %d, canopy %d, %d bytes",
		p.TreeType, p.Hasher, p.Height, p.CanopyDepth, l.Total))
	tree.AddNode(section("header", 0, batchedtree.HeaderBytes))
	tree.AddNode(section("root history", l.RootHistoryOff, l.RootHistoryBytes))
	addQueueLayout(tree, "input queue", l.InputQueueOff, l.InputQueue)
	if p.HasOutputQueue() {
		addQueueLayout(tree, "output queue", l.OutputQueueOff, l.OutputQueue)
	}
	fmt.Fprint(w, tree.String())
}

func addQueueLayout(tree treeprint.Tree, name string, off uint64, l queue.Layout) {
	branch := tree.AddBranch(section(name, off, l.Total))
	branch.AddNode(section("header", off, queue.HeaderBytes))
	branch.AddNode(section("records", off+l.BatchesOff, queue.NumBatches*batch.RecordBytes))
	for i := 0; i < queue.NumBatches; i++ {
		b := branch.AddBranch(fmt.Sprintf("batch %d", i))
		if l.BloomBytes != 0 {
			b.AddNode(section("bloom", off+l.BloomOff[i], l.BloomBytes))
		}
		b.AddNode(section("hashchain", off+l.HashchainOff[i], l.HashchainBytes))
		if l.ValuesBytes != 0 {
			b.AddNode(section("values", off+l.ValuesOff[i], l.ValuesBytes))
		}
	}
}
