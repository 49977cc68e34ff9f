// Command osr runs online surface reconstruction on a mesh.
//
// Without -listen it reconstructs a synthetic -grid x -grid plane and prints
// a run summary. With -listen it serves the osr.Remesher gRPC service until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/db"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine/reference"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/fsutil"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/meshrpc"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/security"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/version"
)

type options struct {
	configPath string
	scale      float64
	smoothness float64
	grid       int
	saveConfig string
	dbPath     string
	listen     string
	admin      string
}

func parseFlags(fs *flag.FlagSet, args []string) (options, bool, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "JSON parameter file")
	fs.Float64Var(&o.scale, "scale", -1, "Mesh scale, > 0 (negative keeps the default)")
	fs.Float64Var(&o.smoothness, "smoothness", -1, "Smoothness in [0,1) (negative keeps the default)")
	fs.IntVar(&o.grid, "grid", 8, "Cells per side of the synthetic plane")
	fs.StringVar(&o.saveConfig, "save-config", "", "Write the effective parameters to this JSON file")
	fs.StringVar(&o.dbPath, "db", "", "SQLite run ledger (disabled when empty)")
	fs.StringVar(&o.listen, "listen", "", "Serve gRPC on this address instead of running once")
	fs.StringVar(&o.admin, "admin", "", "Serve /debug/ admin routes on this address (with -listen)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, false, err
	}
	return o, *showVersion, nil
}

// parameters layers the flag overrides over the optional config file.
func (o options) parameters(fsys fsutil.FileSystem) (*config.Parameters, error) {
	base := config.EmptyParameters()
	if o.configPath != "" {
		var err error
		if base, err = config.LoadParametersFS(fsys, o.configPath); err != nil {
			return nil, err
		}
	}
	return base.Merge(config.FromSentinels(float32(o.scale), float32(o.smoothness))), nil
}

// openLedger validates the ledger path and creates its directory before
// opening the database.
func openLedger(fsys fsutil.FileSystem, path string) (*db.DB, error) {
	if err := security.ValidateLedgerPath(path); err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return db.NewDB(path)
}

func main() {
	o, showVersion, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	fsys := fsutil.OSFileSystem{}
	params, err := o.parameters(fsys)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	if o.saveConfig != "" {
		if err := security.ValidateOutputPath(o.saveConfig, ".json"); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
		if err := config.SaveParameters(fsys, o.saveConfig, params); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}

	var procOpts []pipeline.Option
	var ledger *db.DB
	if o.dbPath != "" {
		ledger, err = openLedger(fsys, o.dbPath)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer ledger.Close()
		procOpts = append(procOpts, pipeline.WithRecorder(ledger))
	}
	proc := pipeline.NewProcessor(reference.New(), procOpts...)

	if o.listen != "" {
		return serve(ctx, o, proc, ledger)
	}
	return runOnce(ctx, o, proc, params, stdout)
}

func runOnce(ctx context.Context, o options, proc *pipeline.Processor, params *config.Parameters, stdout io.Writer) error {
	input := mesh.Plane(o.grid)
	start := time.Now()
	out, err := proc.Process(ctx, input, params)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Free(out); err != nil {
			log.Printf("release output: %v", err)
		}
	}()

	fmt.Fprintf(stdout, "input:  %d vertices, %d triangles\n", input.VertexCount, input.TriangleCount)
	fmt.Fprintf(stdout, "output: %d vertices, %d triangles\n", out.VertexCount, out.TriangleCount)
	fmt.Fprintf(stdout, "took:   %v\n", time.Since(start).Round(time.Microsecond))
	return nil
}

func serve(ctx context.Context, o options, proc *pipeline.Processor, ledger *db.DB) error {
	srv := meshrpc.NewServer(o.listen, meshrpc.NewService(proc))
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	log.Printf("%s serving osr.Remesher on %s", version.String(), srv.Addr())

	if o.admin != "" {
		mux := http.NewServeMux()
		if ledger != nil {
			if err := ledger.AttachAdminRoutes(mux); err != nil {
				return err
			}
		} else {
			tsweb.Debugger(mux)
		}
		server := &http.Server{Addr: o.admin, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("admin server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("admin server shutdown error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Print("shutting down")
	return nil
}
