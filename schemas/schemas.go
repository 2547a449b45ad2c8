// Package schemas embeds the JSON schemas used to validate external payloads
// and configuration files.
package schemas

import _ "embed"

// RobotoffNutrientSchemaJSON describes a response of Robotoff's
// /api/v1/predict/nutrient endpoint.
//
//go:embed robotoff_nutrient.schema.json
var RobotoffNutrientSchemaJSON string

// ProjectConfigSchemaJSON describes a .nutrieval.yaml file.
//
//go:embed project_config.schema.json
var ProjectConfigSchemaJSON string
