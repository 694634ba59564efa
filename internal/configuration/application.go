package configuration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"renderq/internal/schema"
)

const (
	// KeyOutputRoot configures the output root directory.
	KeyOutputRoot = "RENDERQ_OUTPUT_ROOT"

	// KeyBackendCommand configures the external renderer command.
	KeyBackendCommand = "RENDERQ_BACKEND_COMMAND"

	// KeyBackendArgs configures extra renderer arguments (space separated).
	KeyBackendArgs = "RENDERQ_BACKEND_ARGS"

	// KeyTickMilliseconds configures the estimate recomputation interval.
	KeyTickMilliseconds = "RENDERQ_TICK_MS"

	// KeyImagePriorSeconds configures the assumed per-image duration used
	// before any sample exists.
	KeyImagePriorSeconds = "RENDERQ_IMAGE_PRIOR_SECONDS"

	// KeyScenes configures the renderable scene/camera pairings, as
	// "scene:camera" or "scene:camera:first-last" entries separated by
	// commas.
	KeyScenes = "RENDERQ_SCENES"
)

const (
	defaultOutputRoot       = "/tmp/renderq"
	defaultBackendCommand   = "blender-render"
	defaultTickInterval     = 500 * time.Millisecond
	defaultImagePrior       = 30 * time.Second
	defaultFrameStart       = 1
	defaultFrameEnd         = 250
	sceneSpecParts          = 2
	sceneSpecPartsWithRange = 3
	frameRangeParts         = 2
)

// AppConfiguration is the principal structure holding the application
// configuration.
type AppConfiguration struct {
	OutputRoot     string
	BackendCommand string
	BackendArgs    []string
	TickInterval   time.Duration
	ImagePrior     time.Duration
	Scenes         []schema.SceneUnit
}

// EstablishAppConfiguration builds the [AppConfiguration] from the given
// configuration files, falling back to defaults for anything unset. Called
// without filenames, it returns the pure defaults.
func (c *Handler) EstablishAppConfiguration(filenames ...string) (*AppConfiguration, error) {
	envMap := map[string]string{}

	if len(filenames) > 0 {
		var err error

		envMap, err = c.ReadGeneric(filenames...)
		if err != nil {
			return nil, err
		}
	}

	appConfig := &AppConfiguration{
		OutputRoot:     defaultOutputRoot,
		BackendCommand: defaultBackendCommand,
		TickInterval:   defaultTickInterval,
		ImagePrior:     defaultImagePrior,
	}

	if value := c.MapKeyToString(envMap, KeyOutputRoot); value != "" {
		appConfig.OutputRoot = value
	}

	if value := c.MapKeyToString(envMap, KeyBackendCommand); value != "" {
		appConfig.BackendCommand = value
	}

	if value := c.MapKeyToString(envMap, KeyBackendArgs); value != "" {
		appConfig.BackendArgs = strings.Fields(value)
	}

	if value := c.MapKeyToInt(envMap, KeyTickMilliseconds); value > 0 {
		appConfig.TickInterval = time.Duration(value) * time.Millisecond
	}

	if value := c.MapKeyToInt(envMap, KeyImagePriorSeconds); value > 0 {
		appConfig.ImagePrior = time.Duration(value) * time.Second
	}

	if value := c.MapKeyToString(envMap, KeyScenes); value != "" {
		scenes, err := ParseScenes(value)
		if err != nil {
			return nil, err
		}
		appConfig.Scenes = scenes
	}

	return appConfig, nil
}

// ParseScenes parses a scene/camera pairing list of the form
// "sceneA:cam1,sceneA:cam2:1-120" into [schema.SceneUnit] entries. Pairings
// without an explicit frame range get the default range.
func ParseScenes(spec string) ([]schema.SceneUnit, error) {
	var units []schema.SceneUnit

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != sceneSpecParts && len(parts) != sceneSpecPartsWithRange {
			return nil, fmt.Errorf("%w: %q", ErrBadSceneSpec, entry)
		}

		unit := schema.SceneUnit{
			Scene:      strings.TrimSpace(parts[0]),
			Camera:     strings.TrimSpace(parts[1]),
			FrameStart: defaultFrameStart,
			FrameEnd:   defaultFrameEnd,
		}

		if unit.Scene == "" || unit.Camera == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadSceneSpec, entry)
		}

		if len(parts) == sceneSpecPartsWithRange {
			rangeParts := strings.Split(strings.TrimSpace(parts[2]), "-")
			if len(rangeParts) != frameRangeParts {
				return nil, fmt.Errorf("%w: %q", ErrBadSceneSpec, entry)
			}

			first, err := strconv.Atoi(rangeParts[0])
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadSceneSpec, entry)
			}

			last, err := strconv.Atoi(rangeParts[1])
			if err != nil || last < first {
				return nil, fmt.Errorf("%w: %q", ErrBadSceneSpec, entry)
			}

			unit.FrameStart = first
			unit.FrameEnd = last
		}

		units = append(units, unit)
	}

	return units, nil
}
