package crashlog

const crashReport = `Process:               CrashingTest [12345]
Path:                  /Users/USER/Desktop/CrashingTest.app/Contents/MacOS/CrashingTest
Identifier:            com.example.CrashingTest
Version:               1.0 (1)
Code Type:             X86-64 (Native)
Parent Process:        ??? [1]

Date/Time:             2021-03-01 10:00:00.000 -0800
OS Version:            macOS 11.2.1 (20D74)

Crashed Thread:        0  Dispatch queue: com.apple.main-thread

Exception Type:        EXC_CRASH (SIGABRT)

Thread 0 Crashed:: Dispatch queue: com.apple.main-thread
0   CrashingTest                  	0x000000010bbb1de3 0x10bbae000 + 15843
1   CrashingTest                  	0x000000010bbb1e10 CrashingTest + 15888
2   libdyld.dylib                 	0x00007fff20337f5d start + 1
3   com.example.Helper            	0x000000010bcc0010 0x10bcc0000 + 16
4   CrashingTest                  	0x000000010bbb1f00 main + 12
5   Unknown                       	0x000000010bdd0000 0x10bdd0000 + 0

Thread 0 crashed with X86 Thread State (64-bit):
  rax: 0x0000000000000000  rbx: 0x0000000000000006  rcx: 0x00007ffee4053a88  rdx: 0x0000000000000000

Binary Images:
       0x10bbae000 -        0x10bbb1fff +CrashingTest (1.0 - 1) <C8ECC43A-6F0F-3880-920A-071973DA584C> /Users/USER/Desktop/CrashingTest.app/Contents/MacOS/CrashingTest
       0x10bcc0000 -        0x10bcc3fff +com.example.Helper (1.0) <11111111-2222-3333-4444-555555555555> /Users/USER/Desktop/CrashingTest.app/Contents/Frameworks/Helper.framework/Versions/A/Helper
    0x7fff20322000 -     0x7fff20338fff  libdyld.dylib (852.2) <5FB7E4D6-4C6B-3E0E-8F1E-5F3C2E5B7A11> /usr/lib/system/libdyld.dylib

External Modification Summary:
  Calls made by other processes targeting this process:
    task_for_pid: 0
`

const sampleReport = `Analysis of sampling MultiTargetHangingTest (pid 4242) every 1 millisecond
Process:         MultiTargetHangingTest [4242]
Path:            /Users/USER/Library/Developer/Xcode/DerivedData/Build/Products/Debug/MultiTargetHangingTest
Load Address:    0x10069d000
Identifier:      MultiTargetHangingTest
Code Type:       X86-64
Parent Process:  zsh [4000]

Call graph:
    2669 Thread_1234   DispatchQueue_1: com.apple.main-thread  (serial)
    + 2669 start  (in libdyld.dylib) + 1  [0x7fff20337f5d]
    +   2669 ??? (in MultiTargetHangingTest)  load address 0x10069d000 + 0x3e3f  [0x1006a0e3f]
    +     2669 ??? (in MultiTargetHangingTest)  load address 0x10069d000 + 0x3dd0  [0x1006a0dd0]

Total number in stack (recursive counted multiple, when >=5):

Binary Images:
       0x10069d000 -        0x1006a0fff +MultiTargetHangingTest (0) <C8ECC43A-6F0F-3880-920A-071973DA584C> /Users/USER/Library/Developer/Xcode/DerivedData/Build/Products/Debug/MultiTargetHangingTest
    0x7fff20322000 -     0x7fff20338fff  libdyld.dylib (852.2) <5FB7E4D6-4C6B-3E0E-8F1E-5F3C2E5B7A11> /usr/lib/system/libdyld.dylib
`

const spindumpReport = `Date/Time:        2021-03-01 10:00:00.000 -0800
OS Version:       macOS 11.2.1 (Build 20D74)
Architecture:     x86_64
Report Version:   32

Process:          MultiTargetHangingTest [4242]
Path:             /Users/USER/MultiTargetHangingTest
Architecture:     x86_64

  Thread 0x1234    1000 samples (1-1000)    priority 31 (base 31)
  1000  start + 1 (libdyld.dylib + 87901) [0x7fff20337f5d]
    1000  ??? (MultiTargetHangingTest + 15935) [0x1006a0e3f]
      1000  ??? (MultiTargetHangingTest + 15824) [0x1006a0dd0]

  Binary Images:
         0x10069d000 -        0x1006a0fff  MultiTargetHangingTest (0)       <C8ECC43A-6F0F-3880-920A-071973DA584C>  /Users/USER/MultiTargetHangingTest
      0x7fff20322000 -     0x7fff20338fff  libdyld.dylib (852.2)     <5FB7E4D6-4C6B-3E0E-8F1E-5F3C2E5B7A11>  /usr/lib/system/libdyld.dylib

Process:          Helper [5000]
Path:             /Applications/Helper.app/Contents/MacOS/Helper

  Thread 0x5678    10 samples (1-10)    priority 31 (base 31)
  10  ??? (Helper + 100) [0x100004064]

  Binary Images:
         0x100000000 -        0x100007fff  Helper (1.0) <AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE> /Applications/Helper.app/Contents/MacOS/Helper
`

const ipsReport = `{"app_name":"CrashingTest","timestamp":"2023-08-04 19:10:03.00 +0200","app_version":"1.0","slice_uuid":"c8ecc43a-6f0f-3880-920a-071973da584c","build_version":"1","platform":1,"bundleID":"com.example.CrashingTest","share_with_app_devs":0,"is_first_party":0,"bug_type":"309","os_version":"macOS 13.5 (22G74)","incident_id":"5C2B7A1E-0000-4000-8000-000000000001","name":"CrashingTest"}
{
  "procName" : "CrashingTest",
  "procPath" : "/Applications/CrashingTest.app/Contents/MacOS/CrashingTest",
  "pid" : 12345,
  "cpuType" : "ARM-64",
  "bug_type" : "309",
  "bundleInfo" : {"CFBundleIdentifier":"com.example.CrashingTest","CFBundleShortVersionString":"1.0"},
  "osVersion" : {"train":"macOS 13.5","build":"22G74"},
  "captureTime" : "2023-08-04 19:10:03.0000 +0200",
  "exception" : {"type":"EXC_CRASH","signal":"SIGABRT"},
  "faultingThread" : 0,
  "threads" : [
    {"id":1,"triggered":true,"queue":"com.apple.main-thread","frames":[
      {"imageOffset":15843,"imageIndex":0},
      {"imageOffset":4000,"symbol":"start","symbolLocation":1,"imageIndex":1}
    ]}
  ],
  "usedImages" : [
    {"source":"P","arch":"arm64","base":4375035904,"size":16384,"uuid":"c8ecc43a-6f0f-3880-920a-071973da584c","path":"/Applications/CrashingTest.app/Contents/MacOS/CrashingTest","name":"CrashingTest"},
    {"source":"P","arch":"arm64e","base":6442450944,"size":565248,"uuid":"5fb7e4d6-4c6b-3e0e-8f1e-5f3c2e5b7a11","path":"/usr/lib/dyld","name":"dyld"}
  ]
}
`
