package main

import (
	"fmt"
	"os"
	"strings"
)

const (
	sentinelStart = "# picoros-typegen:start"
	sentinelEnd   = "# picoros-typegen:end"
)

// initCmd writes (or updates) a CMake block that regenerates the type
// header at build time.
type initCmd struct {
	Path        string   `arg:"" optional:"" default:"CMakeLists.txt" type:"path" help:"CMakeLists.txt to update; created if missing."`
	PackageDirs []string `name:"packages-dir" default:"interfaces" help:"Package directories, relative to the CMake source directory."`
	HeaderFile  string   `default:"${default_header_file}" help:"Header file name inside the generated directory."`
	Target      string   `default:"picoros_types" help:"Name of the custom target that builds the header."`
	DryRun      bool     `help:"Print what would be written without modifying the file."`
}

func (c *initCmd) Run(e *env) error {
	section := generateSection(c.PackageDirs, c.HeaderFile, c.Target)

	existing, err := os.ReadFile(c.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", c.Path, err)
	}
	updated := applySection(string(existing), section)

	if c.DryRun {
		_, _ = fmt.Fprint(e.stdout, updated)
		return nil
	}

	if err := os.WriteFile(c.Path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.Path, err)
	}
	e.logger.Info("wrote generation block", "path", c.Path, "target", c.Target)
	return nil
}

// generateSection returns the sentinel-wrapped CMake block.
func generateSection(packageDirs []string, headerFile, target string) string {
	var dirs strings.Builder
	for _, d := range packageDirs {
		fmt.Fprintf(&dirs, "    \"${CMAKE_CURRENT_SOURCE_DIR}/%s\"\n", d)
	}

	body := `# Regenerates the pico-ROS type header whenever an interface changes.
find_program(PICOROS_TYPEGEN picoros-typegen REQUIRED)
set(PICOROS_TYPES_DIR "${CMAKE_CURRENT_BINARY_DIR}/type_descriptions")
set(PICOROS_TYPES_HEADER "${PICOROS_TYPES_DIR}/` + headerFile + `")
set(PICOROS_INTERFACE_DIRS
` + dirs.String() + `)
file(GLOB_RECURSE PICOROS_INTERFACE_FILES CONFIGURE_DEPENDS
    "${CMAKE_CURRENT_SOURCE_DIR}/*.msg"
    "${CMAKE_CURRENT_SOURCE_DIR}/*.srv"
    "${CMAKE_CURRENT_SOURCE_DIR}/*.idl"
)
add_custom_command(
    OUTPUT "${PICOROS_TYPES_HEADER}"
    COMMAND "${PICOROS_TYPEGEN}" gen
        --output-dir "${PICOROS_TYPES_DIR}"
        --header-file "` + headerFile + `"
        ${PICOROS_INTERFACE_DIRS}
    DEPENDS ${PICOROS_INTERFACE_FILES}
    COMMENT "Generating pico-ROS type header"
    VERBATIM
)
add_custom_target(` + target + ` DEPENDS "${PICOROS_TYPES_HEADER}")
include_directories("${PICOROS_TYPES_DIR}")`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
