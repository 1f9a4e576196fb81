package main

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/config"
	"github.com/mediayear/backend/internal/preview"
	"github.com/mediayear/backend/internal/terminal"
	"github.com/mediayear/backend/internal/uploadform"
)

// session is a controller wired to terminal surfaces.
type session struct {
	controller *uploadform.Controller
	form       *terminal.Form
	grid       *terminal.Grid
	progress   *terminal.ProgressBar
	navigator  *terminal.Navigator
	alerter    *terminal.Alerter
}

func newSession(opts *globalOptions, stdout, stderr io.Writer, fields []uploadform.Field, files []preview.File) (*session, error) {
	submitter, err := uploadform.NewHTTPSubmitter(opts.server, opts.endpoint)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid server address", goerr.V("server", opts.server))
	}
	navigator, err := terminal.NewNavigator(stdout, submitter.Endpoint())
	if err != nil {
		return nil, goerr.Wrap(err, "invalid endpoint")
	}

	icons := terminal.NewIcons()
	s := &session{
		form:      terminal.NewForm(fields, uploadform.DefaultFileField, files),
		grid:      terminal.NewGrid(stdout, icons),
		progress:  terminal.NewProgressBar(stderr),
		navigator: navigator,
		alerter:   terminal.NewAlerter(stderr),
	}

	s.controller, err = uploadform.New(uploadform.Dependencies{
		Form:      s.form,
		Progress:  s.progress,
		Grid:      s.grid,
		Icons:     icons,
		Navigator: s.navigator,
		Alerter:   s.alerter,
		Submitter: submitter,
	}, uploadform.WithLogger(config.NewLogger(stderr, opts.logLevel, opts.logJSON)))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func loadFiles(paths []string) ([]preview.File, error) {
	files := make([]preview.File, 0, len(paths))
	for _, p := range paths {
		f, err := preview.NewLocalFile(p)
		if err != nil {
			return nil, goerr.Wrap(err, "cannot read file", goerr.V("path", p))
		}
		files = append(files, f)
	}
	return files, nil
}
