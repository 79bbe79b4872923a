// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/config"
)

// azureProvider speaks Azure OpenAI's wire format: identical JSON payload
// and response shape to openaiProvider, but the deployment name replaces
// the model id in the URL path and auth uses the api-key header instead
// of a bearer token (§4.5: "Azure (deployment name in place of model
// id)"). Delegates entirely to an openaiProvider configured with Azure's
// URL shape and header.
type azureProvider struct {
	*openaiProvider
}

const azureAPIVersion = "2024-06-01"

func newAzureProvider(cfg config.ProviderConfig) *azureProvider {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		endpoint, cfg.AzureDeployment, azureAPIVersion)
	apiKey := cfg.APIKey
	return &azureProvider{
		openaiProvider: &openaiProvider{
			endpointURL: url,
			authorize: func(req *http.Request) {
				if apiKey != "" {
					req.Header.Set("api-key", apiKey)
				}
			},
			client: &http.Client{Timeout: 120 * time.Second},
		},
	}
}

// name overrides the embedded openaiProvider's; send/stream are promoted
// unchanged since the payload and response shape are identical to OpenAI's.
func (p *azureProvider) name() string { return "azure" }
