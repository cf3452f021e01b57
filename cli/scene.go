package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/runtime/parser"
	"github.com/opal-lang/nodeio/runtime/viz"
)

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH",
		Short: "Validate a scene log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(args[0])
		},
	}
}

// check loads the scene at path with the cursor at the end and prints a
// one-line summary.
func (a *app) check(path string) error {
	scene, err := a.loadScene(path, intern.New(), 0)
	if err != nil {
		return err
	}
	boxes := len(scene.Entities())
	scene.End()
	_, _ = fmt.Fprintf(a.stdout, "%s: %d records, %d boxes, %d visible at end\n",
		path, scene.Len(), boxes, len(scene.Visible()))
	return nil
}

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch PATH",
		Short: "Re-check a scene log whenever it changes",
		Long: `Check the scene log once, then again each time the file is written,
created or renamed into place. Failed checks are reported and watching
continues. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == parser.StdinPath {
				return &CLIError{Message: "watch needs a file path", Hint: "standard input cannot be watched"}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			useColor := ShouldUseColor(a.stderr, a.noColor)
			recheck := func() error {
				if err := a.check(path); err != nil {
					FormatError(a.stderr, err, useColor)
				}
				return nil
			}
			_ = recheck()
			return viz.Watch(ctx, path, recheck)
		},
	}
}

// prompter reads one line of input per call.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

func newLinerPrompter() prompter {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	return ln
}

func (a *app) stepCommand() *cobra.Command {
	var (
		last      int
		viewName  string
		viewsFile string
	)
	cmd := &cobra.Command{
		Use:   "step PATH",
		Short: "Step through a scene log interactively",
		Long: `Step through a scene log one record at a time.

Each character typed at the prompt is a key:
` + stepHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == parser.StdinPath {
				return &CLIError{Message: "step needs a file path", Hint: "standard input is used for keys"}
			}

			views := viz.BuiltinViews()
			if viewsFile != "" {
				var err error
				if views, err = viz.LoadViews(viewsFile); err != nil {
					return err
				}
			}
			view, err := views.LookupView(viewName)
			if err != nil {
				return &CLIError{
					Message: err.Error(),
					Hint:    "available views: " + strings.Join(views.Names(), ", "),
					Err:     err,
				}
			}

			scene, err := a.loadScene(path, intern.New(), last)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(a.stdout, "%s: %d records, %d boxes\n", path, scene.Len(), len(scene.Entities()))
			s := &stepper{out: a.stdout, scene: scene, views: views}
			s.setView(nameOr(viewName, viz.DefaultView), view)
			s.current()

			p := a.newPrompter()
			defer p.Close()
			return s.run(p)
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "Initial cursor position (clamped to the log)")
	cmd.Flags().StringVar(&viewName, "view", "", "Camera preset (default \"top\")")
	cmd.Flags().StringVar(&viewsFile, "views", "", "YAML file of extra camera presets")
	return cmd
}

const stepHelp = `  >  }  ]  $   forward 1, 10, 100 records or to the end
  <  {  [  0   back 1, 10, 100 records or to the start
  .            print the current record
  v            list the visible boxes
  ?            show this help
  q            quit
A line of the form "view NAME" switches the camera preset.
`

// stepper applies key presses to a scene and prints the visited lines.
type stepper struct {
	out   io.Writer
	scene *viz.Scene
	views viz.Views
	view  string
}

func (s *stepper) run(p prompter) error {
	for {
		line, err := p.Prompt(fmt.Sprintf("[%d/%d] ", s.scene.Last(), s.scene.Len()-1))
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p.AppendHistory(line)

		if name, ok := strings.CutPrefix(line, "view "); ok {
			s.switchView(strings.TrimSpace(name))
			continue
		}
		if quit := s.keys(line); quit {
			return nil
		}
	}
}

// keys applies every key in line and reports whether one of them was q.
func (s *stepper) keys(line string) bool {
	for _, key := range line {
		switch key {
		case '>':
			s.print(s.scene.Forward(1))
		case '}':
			s.print(s.scene.Forward(10))
		case ']':
			s.print(s.scene.Forward(100))
		case '$':
			s.print(s.scene.End())
		case '<':
			s.print(s.scene.Back(1))
		case '{':
			s.print(s.scene.Back(10))
		case '[':
			s.print(s.scene.Back(100))
		case '0':
			s.print(s.scene.Start())
		case '.':
			s.current()
		case 'v':
			s.visible()
		case '?':
			_, _ = fmt.Fprint(s.out, stepHelp)
		case 'q':
			return true
		case ' ', '\t':
		default:
			_, _ = fmt.Fprintf(s.out, "unknown key %q (? for help)\n", key)
		}
	}
	return false
}

func (s *stepper) print(lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(s.out, l)
	}
}

func (s *stepper) current() {
	_, _ = fmt.Fprintln(s.out, s.scene.Current())
}

func (s *stepper) visible() {
	entities := s.scene.Entities()
	for _, e := range entities {
		if !e.Visible {
			continue
		}
		b := e.Shape
		_, _ = fmt.Fprintf(s.out, "%d: box at (%g, %g, %g) size (%g, %g, %g) %s\n",
			e.Record, b.X, b.Y, b.Z, b.W, b.H, b.D, b.Color)
	}
}

func (s *stepper) switchView(name string) {
	view, err := s.views.LookupView(name)
	if err != nil {
		_, _ = fmt.Fprintln(s.out, err)
		return
	}
	s.setView(name, view)
}

func (s *stepper) setView(name string, v viz.View) {
	s.view = name
	_, _ = fmt.Fprintf(s.out, "view %s: eye %v at %v fov %g\n", name, v.Eye, v.At, v.FovY)
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
