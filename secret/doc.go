// Package secret resolves API keys and other credentials referenced from
// configuration.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Built-in "env" and "file" providers (see EnvProvider, FileProvider)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:SHODAN_API_KEY
//   - From a file: secretref:file:/run/secrets/keys.yaml#hibp
//   - Inline use:  Bearer secretref:env:TOKEN
package secret
