package registry

// EnvKind is the kind of the environment record every registry bootstraps.
const EnvKind = "Env"

// envSpec is used when the models directory has no Env document. The type
// is open so deployments can carry extra settings.
const envSpec = `
kind: Env#open
name: str
models: str#list
proxies: str#list
`
