package extract

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"media-fetch-go/pkg/formats"
	"media-fetch-go/pkg/interfaces"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/platform"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/urlutil"
	"media-fetch-go/pkg/ytdlp"
)

// Analyzer resolves a submitted URL into its downloadable formats by running
// the platform's attempt profiles in order.
type Analyzer struct {
	runner   interfaces.ToolRunner
	registry *Registry
	expander interfaces.URLExpander
	auth     interfaces.AuthProvider
	log      *logging.Logger
	sleep    func(time.Duration)
}

// NewAnalyzer creates an analyzer. expander and auth may be nil.
func NewAnalyzer(runner interfaces.ToolRunner, registry *Registry, expander interfaces.URLExpander, auth interfaces.AuthProvider, log *logging.Logger) *Analyzer {
	return &Analyzer{
		runner:   runner,
		registry: registry,
		expander: expander,
		auth:     auth,
		log:      log.WithComponent("analyzer"),
		sleep:    time.Sleep,
	}
}

// Analyze runs extraction attempts for the URL until one succeeds. When every
// attempt fails, the classified fault of the last attempt is returned.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*types.MediaDescriptor, error) {
	targetURL := urlutil.Normalize(rawURL)
	p := platform.FromURL(targetURL)

	if a.expander != nil {
		targetURL = a.expander.Expand(ctx, targetURL)
		if p == types.PlatformUnknown {
			// A shortener may have been hiding a supported platform.
			p = platform.FromURL(targetURL)
		}
	}

	strategy := a.registry.Get(p)
	profiles := strategy.Profiles(targetURL)
	log := a.log.WithPlatform(p).With("strategy", strategy.Name())

	var lastFault *types.Fault
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.sleep(randomDelay(profile.DelayMin, profile.DelayMax))

		attemptURL := targetURL
		if profile.RequestURL != nil {
			rewritten, err := profile.RequestURL(targetURL)
			if err != nil {
				log.Debug("attempt skipped", "profile", profile.Name, "reason", err)
				continue
			}
			attemptURL = rewritten
		}

		args := append([]string{"--dump-json"}, ytdlp.CommonArgs()...)
		args = append(args, profile.Args()...)
		if a.auth != nil {
			args = append(args, a.auth.AuthArgs(p)...)
		}
		args = append(args, attemptURL)

		out, err := a.runner.Output(ctx, args)
		if err != nil {
			lastFault = ytdlp.ClassifyRunError(err)
			log.Warn("extraction attempt failed", "profile", profile.Name, "error", err)

			if i < len(profiles)-1 {
				a.sleep(randomDelay(500*time.Millisecond, 1500*time.Millisecond))
			}
			continue
		}

		doc := gjson.ParseBytes(out)
		desc := formats.Normalize(doc, p)
		log.Info("extraction succeeded",
			"profile", profile.Name,
			"title", desc.Title,
			"video_formats", len(desc.Formats.Video),
			"audio_formats", len(desc.Formats.Audio))
		return &desc, nil
	}

	if lastFault == nil {
		lastFault = types.NewFault(types.FaultGeneric,
			"Failed to analyze URL. Please verify the URL is correct and try again.")
	}
	return nil, lastFault
}
