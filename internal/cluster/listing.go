// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// listedCluster is one entry of the client's 'cluster list --json' output
type listedCluster struct {
	Name      string `json:"name"`
	Url       string `json:"url"`
	Version   string `json:"version"`
	ClusterId string `json:"cluster_id"`
}

const listingSchemaUrl = "listing.schema.json"

var (
	//go:embed embed/listing.schema.json
	listingSchemaContent string

	compileListingSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return jsonschema.CompileString(listingSchemaUrl, listingSchemaContent)
	})
)

func parseListing(output string) ([]listedCluster, error) {
	schema, err := compileListingSchema()
	if err != nil {
		return nil, fmt.Errorf("could not compile listing schema: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(output)))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("listing is not valid JSON: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("listing does not match schema: %w", err)
	}

	var clusters []listedCluster
	if err := json.Unmarshal([]byte(output), &clusters); err != nil {
		return nil, fmt.Errorf("could not unmarshal listing: %w", err)
	}
	return clusters, nil
}
