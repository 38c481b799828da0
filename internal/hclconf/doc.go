// Package hclconf provides the concrete HCL implementation of the
// configuration loading and data binding interfaces defined in the `config`
// package. It is responsible for file parsing, HCL-to-model translation, and
// decoding plugin option bodies into their Go config structs.
package hclconf
