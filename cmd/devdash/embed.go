package main

import _ "embed"

// embeddedConfig is layered between the defaults and the config file. Build
// scripts may overwrite embed_config.yaml to ship site defaults, such as a
// private manifest endpoint.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
