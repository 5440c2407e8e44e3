// Package templates embeds the files devark renders into Node projects.
package templates

import "embed"

//go:embed all:google-oauth all:github-oauth all:resend-otp all:jwt all:node-mongo all:node-postgres all:project
var FS embed.FS
