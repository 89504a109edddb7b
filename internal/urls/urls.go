package urls

// Documentation URLs for guides and troubleshooting
// All URLs point to the documentation site at https://muurk.github.io/bestway-spa/

// GettingStarted is the quick start guide covering install, init and the
// first status call.
const GettingStarted = "https://muurk.github.io/bestway-spa/getting-started/"

// Credentials explains how to capture appid, appsecret and the device
// identifiers from a paired vendor app.
const Credentials = "https://muurk.github.io/bestway-spa/credentials/"

// BridgeAPI documents the bridge HTTP and websocket endpoints.
const BridgeAPI = "https://muurk.github.io/bestway-spa/bridge-api/"

// TroubleshootingGuide provides solutions to common cloud and
// credential errors.
const TroubleshootingGuide = "https://muurk.github.io/bestway-spa/troubleshooting/"
