// Package flags implements flags shared by multiple commands.
package flags

import (
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// CfgCorpusDir is the flag used to specify the corpus directory.
	CfgCorpusDir = "corpus.dir"
	// CfgCorpusSamples is the flag used to specify the number of generated
	// samples per target.
	CfgCorpusSamples = "corpus.samples"
	// CfgCorpusSeed is the flag used to specify the corpus generator seed.
	CfgCorpusSeed = "corpus.seed"
	// CfgCorpusStructuredDir is the flag used to specify the structured
	// fuzzer corpus directory.
	CfgCorpusStructuredDir = "corpus.structured_dir"

	// CfgKeepGoing is the flag used to continue replaying after a fault.
	CfgKeepGoing = "run.keep_going"
)

var (
	// CorpusDirFlags has the corpus directory flag.
	CorpusDirFlags = flag.NewFlagSet("", flag.ContinueOnError)
	// CorpusGenFlags has the corpus generator flags.
	CorpusGenFlags = flag.NewFlagSet("", flag.ContinueOnError)
	// KeepGoingFlags has the keep going flag.
	KeepGoingFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

// CorpusDir returns the corpus directory.
func CorpusDir() string {
	return viper.GetString(CfgCorpusDir)
}

// CorpusSamples returns the number of generated samples per target.
func CorpusSamples() int {
	return viper.GetInt(CfgCorpusSamples)
}

// CorpusSeed returns the corpus generator seed.
func CorpusSeed() int64 {
	return viper.GetInt64(CfgCorpusSeed)
}

// CorpusStructuredDir returns the structured fuzzer corpus directory, empty
// if none should be written.
func CorpusStructuredDir() string {
	return viper.GetString(CfgCorpusStructuredDir)
}

// KeepGoing returns true iff replaying should continue after a fault.
func KeepGoing() bool {
	return viper.GetBool(CfgKeepGoing)
}

func init() {
	CorpusDirFlags.String(CfgCorpusDir, "corpus", "corpus directory")
	_ = viper.BindPFlags(CorpusDirFlags)

	CorpusGenFlags.Int(CfgCorpusSamples, 20, "generated samples per target")
	CorpusGenFlags.Int64(CfgCorpusSeed, 0, "corpus generator seed")
	CorpusGenFlags.String(CfgCorpusStructuredDir, "", "structured fuzzer corpus directory")
	_ = viper.BindPFlags(CorpusGenFlags)

	KeepGoingFlags.Bool(CfgKeepGoing, false, "continue after a fault instead of crashing")
	_ = viper.BindPFlags(KeepGoingFlags)
}
