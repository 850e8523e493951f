package main

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-batchedtree/batchedtree"
	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/spf13/cobra"
)

// treeFlags are the parameter flags shared by every command.
type treeFlags struct {
	treeType           string
	hasher             string
	height             uint8
	canopyDepth        uint8
	rootHistory        uint32
	batchSize          uint64
	zkpBatchSize       uint64
	bloomCapacity      uint64
	bloomIters         uint64
	outputBatchSize    uint64
	outputZkpBatchSize uint64
}

func (f *treeFlags) register(cmd *cobra.Command) {
	defaults := batchedtree.DefaultStateTreeParams()
	fs := cmd.PersistentFlags()
	fs.StringVar(&f.treeType, "tree-type", "state", "state or address")
	fs.StringVar(&f.hasher, "hasher", defaults.Hasher.String(), "sha256, keccak256 or mimc-bn254")
	fs.Uint8Var(&f.height, "height", 0, "tree height (0 selects the tree type's default)")
	fs.Uint8Var(&f.canopyDepth, "canopy", defaults.CanopyDepth, "canopy depth")
	fs.Uint32Var(&f.rootHistory, "root-history", defaults.RootHistoryCapacity, "root history capacity")
	fs.Uint64Var(&f.batchSize, "batch-size", 0, "input or address queue batch size (0 selects the default)")
	fs.Uint64Var(&f.zkpBatchSize, "zkp-batch-size", 0, "input or address queue zkp batch size (0 selects the default)")
	fs.Uint64Var(&f.bloomCapacity, "bloom-capacity", defaults.BloomFilterCapacity, "bloom filter size in bits")
	fs.Uint64Var(&f.bloomIters, "bloom-iters", defaults.BloomFilterNumIters, "bloom filter bit positions per element")
	fs.Uint64Var(&f.outputBatchSize, "output-batch-size", defaults.OutputBatchSize, "output queue batch size (state trees)")
	fs.Uint64Var(&f.outputZkpBatchSize, "output-zkp-batch-size", defaults.OutputZkpBatchSize, "output queue zkp batch size (state trees)")
}

// params maps the flags onto the defaults of the selected tree type.
func (f *treeFlags) params() (batchedtree.Params, error) {
	var p batchedtree.Params
	switch f.treeType {
	case "state":
		p = batchedtree.DefaultStateTreeParams()
		p.OutputBatchSize = f.outputBatchSize
		p.OutputZkpBatchSize = f.outputZkpBatchSize
	case "address":
		p = batchedtree.DefaultAddressTreeParams()
	default:
		return batchedtree.Params{}, fmt.Errorf("%w: unknown tree type %q", batchedtree.ErrInvalidParams, f.treeType)
	}
	kind, err := hasher.ParseKind(f.hasher)
	if err != nil {
		return batchedtree.Params{}, err
	}
	p.Hasher = kind
	if f.height != 0 {
		p.Height = f.height
	}
	p.CanopyDepth = f.canopyDepth
	p.RootHistoryCapacity = f.rootHistory
	if f.batchSize != 0 {
		p.InputBatchSize = f.batchSize
	}
	if f.zkpBatchSize != 0 {
		p.InputZkpBatchSize = f.zkpBatchSize
	}
	p.BloomFilterCapacity = f.bloomCapacity
	p.BloomFilterNumIters = f.bloomIters
	return p, p.Validate()
}

func newRootCmd() *cobra.Command {
	var logLevel string
	flags := &treeFlags{}

	root := &cobra.Command{
		Use:   "batchtree",
		Short: "Inspect and simulate batched append and nullify trees",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.New(logLevel)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "NOOP", "log level (NOOP, DEBUG, INFO)")
	flags.register(root)

	root.AddCommand(newLayoutCmd(flags), newSimulateCmd(flags), newInspectCmd())
	return root
}
