package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// authenticated requests.
const AuthorizationHeaderName = "Authorization"

// NASCredentialsKey is the logical name under which a sealed directory
// password is stored per account.
const NASCredentialsKey = "directory-credentials"
