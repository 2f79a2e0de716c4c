package cli

import (
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/internal/dependency"
	"github.com/me/slurmgo/internal/engine"
	"github.com/me/slurmgo/pkg/model"
)

// defaultJobName is used when neither a flag nor a job file names the job.
const defaultJobName = "job"

// jobFlags are shared by run and script.
type jobFlags struct {
	file       string
	name       string
	addition   string
	options    []string
	env        []string
	dependsOn  []int64
	dependsHow string
	after      []int64
	tries      int
	local      bool
	scriptsDir string
	logDir     string
	noDate     bool
	noStrict   bool
}

func kindNames() string {
	kinds := dependency.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "YAML job file")
	fl.StringVarP(&f.name, "name", "n", "", "Job name (default \""+defaultJobName+"\")")
	fl.StringVar(&f.addition, "name-addition", "", "Suffix for the submission name (default: hash of the command, \"-\" for none)")
	fl.StringArrayVarP(&f.options, "option", "o", nil, "Directive key=value, or a bare key for a flag (repeatable)")
	fl.StringArrayVarP(&f.env, "env", "e", nil, "Exported variable KEY=VALUE (repeatable)")
	fl.Int64SliceVar(&f.dependsOn, "depends-on", nil, "Job ids this job depends on")
	fl.StringVar(&f.dependsHow, "depends-how", "", "Dependency kind for --depends-on: "+kindNames()+" (default "+string(dependency.DefaultKind)+")")
	fl.Int64SliceVar(&f.after, "after", nil, "Job ids that must have started")
	fl.IntVar(&f.tries, "tries", 0, "Submissions, each retry running only if the previous one failed (default from config)")
	fl.BoolVar(&f.local, "local", false, "Run as a local background process instead of submitting")
	fl.StringVar(&f.scriptsDir, "scripts-dir", "", "Directory for scripts (empty: temporary file)")
	fl.StringVar(&f.logDir, "log-dir", "", "Directory for job logs")
	fl.BoolVar(&f.noDate, "no-date", false, "Do not append the date to the submission name")
	fl.BoolVar(&f.noStrict, "no-strict", false, "Do not emit the strict bash preamble")
}

// build merges the job file, flags and config into a spec and a request.
// Flags win over the job file.
func (f *jobFlags) build(cmd *cobra.Command, args []string) (*model.JobSpec, engine.Request, error) {
	var req engine.Request
	changed := cmd.Flags().Changed

	jf := &JobFile{}
	if f.file != "" {
		read, err := ReadJobFile(f.file)
		if err != nil {
			return nil, req, err
		}
		jf = read
	}

	name := jf.Name
	if changed("name") {
		name = f.name
	}
	if name == "" {
		name = defaultJobName
	}

	opts := jf.Options.Clone()
	for _, s := range f.options {
		opt, err := model.ParseOption(s)
		if err != nil {
			return nil, req, err
		}
		if opt.IsFlag() {
			opts = opts.SetFlag(opt.Key)
		} else {
			opts = opts.Set(opt.Key, *opt.Value)
		}
	}

	spec, err := cfg.JobSpec(name, opts)
	if err != nil {
		return nil, req, err
	}
	if changed("scripts-dir") {
		spec.ScriptsDir = f.scriptsDir
	}
	if changed("log-dir") {
		spec.LogDir = f.logDir
	}
	if f.noDate {
		spec.DateInName = false
	}
	if f.noStrict {
		spec.BashStrict = false
	}
	if err := spec.Normalize(); err != nil {
		return nil, req, err
	}

	req.Command = jf.Command
	if len(args) > 0 {
		req.Command = strings.Join(args, " ")
	}
	if strings.TrimSpace(req.Command) == "" {
		return nil, req, &model.ConfigError{Field: "command", Message: "no command given"}
	}

	req.Env = maps.Clone(jf.Env)
	for _, kv := range f.env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, req, &model.ConfigError{Field: "env", Message: fmt.Sprintf("%q is not KEY=VALUE", kv)}
		}
		if req.Env == nil {
			req.Env = make(map[string]string)
		}
		req.Env[k] = v
	}

	req.NameAddition = jf.NameAddition
	if changed("name-addition") {
		req.NameAddition = f.addition
	}
	req.DependsOn = append(append([]int64(nil), jf.DependsOn...), f.dependsOn...)
	req.After = append(append([]int64(nil), jf.After...), f.after...)
	req.DependsHow = jf.DependsHow
	if changed("depends-how") {
		req.DependsHow = f.dependsHow
	}
	req.Tries = jf.Tries
	if changed("tries") {
		req.Tries = f.tries
	}
	req.Local = jf.Local || f.local
	return spec, req, nil
}

func newRunCmd() *cobra.Command {
	var f jobFlags

	cmd := &cobra.Command{
		Use:   "run [flags] [--] <command...>",
		Short: "Render a command into a batch script and submit it",
		Long: `Render the command into a batch script and submit it with sbatch, or start
it locally with --local. Prints the job id of the first attempt (or pid:<n>
for local runs), which is the id later jobs should depend on.`,
		Example: `  slurmgo run -n align -o partition=short -o time=2:00:00 -- bwa mem ref.fa r1.fq
  slurmgo run -n merge --depends-on 4242 --tries 3 -- ./merge.sh
  slurmgo run -f job.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, req, err := f.build(cmd, args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.Run(cmd.Context(), spec, req)
			if err != nil {
				return err
			}

			if res.Handle.Kind() == model.HandleScheduler {
				fmt.Fprintln(cmd.OutOrStdout(), res.Handle.JobID())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.Handle)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newScriptCmd() *cobra.Command {
	var f jobFlags

	cmd := &cobra.Command{
		Use:   "script [flags] [--] <command...>",
		Short: "Print the batch script run would submit",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, req, err := f.build(cmd, args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			_, text, err := s.engine.Render(spec, req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
