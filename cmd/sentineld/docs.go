package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           sentineld API
// @version         1.0
// @description     GPU arbitration daemon gating an OpenAI-compatible inference backend.
//
// @contact.name   sentineld maintainers
// @contact.url    https://github.com/your-org/sentineld
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
