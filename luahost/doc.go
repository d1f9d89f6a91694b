// Package luahost runs Lua scripted chips on top of the core signal
// system.
//
// Each chip owns an isolated Lua state with a signal API for joining
// groups, registering listeners, and sending signals across the grid.
// Values and targets are marshaled between Lua and Go at this
// boundary; the core stays unaware of the scripting layer.
package luahost
