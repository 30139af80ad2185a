// Command jobdemo drives a jobsys.System the way an editor does: a
// background job bundles assets and reports progress, a frame loop polls
// the handle and draws a progress bar, and ordered script updates go to
// the command thread.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	js "github.com/Andrej220/go-utils/jobsys"
)

func main() {
	threads := flag.Int("threads", js.DefaultMaxThreads, "worker threads (clamped to CPU count)")
	assets := flag.Int("assets", 40, "number of assets to bundle")
	frame := flag.Duration("frame", 16*time.Millisecond, "frame interval of the poll loop")
	timeout := flag.Duration("timeout", 30*time.Second, "give up waiting after this long")
	flag.Parse()
	if *assets < 1 {
		*assets = 1
	}

	ctx := context.Background()
	metrics := &js.AtomicMetrics{}
	sys := js.New(js.Options{
		MaxThreads: *threads,
		Ctx:        ctx,
		Metrics:    metrics,
		OnJobError: func(err error) {
			lg.FromContext(ctx).Error("Job failed", lg.Any("error", err))
		},
	})

	bundle := js.NewProgress()
	// runs before drawLoop can see Done, so Close below still drains it
	bundle.SetCompletionFunc(func() {
		_ = sys.Commands.Submit(func() { fmt.Println("\nbundle ready") })
	})

	if err := sys.Jobs.AddProgressJob(bundle, func(pr *js.Progress) {
		bundleAssets(pr, *assets)
	}); err != nil {
		fmt.Fprintln(os.Stderr, "submit:", err)
		os.Exit(1)
	}

	for i := range 5 {
		_ = js.SubmitWith(sys.Commands, updateScripts, i)
	}

	drawLoop(bundle, *frame, *timeout)

	snap := bundle.Snapshot()
	elapsed := bundle.Elapsed()
	bundle.Reset()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sys.Close(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
	}

	// Close joined the command thread
	fmt.Printf("status=%q err=%v elapsed=%v scripts=%v executed=%d dropped=%d\n",
		snap.Status, snap.Err, elapsed.Round(time.Millisecond), scriptTicks,
		metrics.Executed(), metrics.Dropped())
	if snap.Err != nil {
		os.Exit(1)
	}
}

// bundleAssets compresses assets on a bounded set of goroutines owned by
// the job, so the job never waits on its own pool.
func bundleAssets(pr *js.Progress, n int) {
	pr.SetTitle("Bundling assets")
	pr.SetStatus("compressing")

	step := 100 / float64(n)
	var g errgroup.Group
	g.SetLimit(4)
	for i := range n {
		g.Go(func() error {
			time.Sleep(time.Duration(5+i%7) * time.Millisecond)
			pr.AddProgress(step)
			return nil
		})
	}
	_ = g.Wait()

	pr.SetStatus("written")
	pr.SetProgress(100)
}

// scriptTicks is only touched from the command thread.
var scriptTicks []int

func updateScripts(tick int) {
	time.Sleep(2 * time.Millisecond)
	scriptTicks = append(scriptTicks, tick)
}

// drawLoop polls pr once per frame until it completes or timeout passes.
func drawLoop(pr *js.Progress, frame, timeout time.Duration) {
	fd := int(os.Stdout.Fd())
	interactive := term.IsTerminal(fd)
	width := 40
	if interactive {
		if w, _, err := term.GetSize(fd); err == nil && w > 30 {
			width = w - 30
		}
	}

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	deadline := time.After(timeout)

	last := ""
	for {
		s := pr.Snapshot()
		line := renderBar(s, width)
		if interactive {
			fmt.Printf("\r%s", line)
		} else if line != last {
			fmt.Println(line)
		}
		last = line

		if s.Done {
			return
		}
		select {
		case <-ticker.C:
		case <-deadline:
			fmt.Println("\ngave up waiting; the job keeps running")
			return
		}
	}
}

func renderBar(s js.ProgressSnapshot, width int) string {
	pct := s.Progress
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return fmt.Sprintf("%s [%s%s] %5.1f%% %s",
		s.Title, strings.Repeat("#", filled), strings.Repeat(".", width-filled), pct, s.Status)
}
